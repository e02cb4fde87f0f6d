package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Summarize matches created in a time window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		end := time.Now().UTC()
		if raw := viper.GetString("evaluate.end"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			end = t
		}
		start := end.Add(-viper.GetDuration("evaluate.window"))
		if raw := viper.GetString("evaluate.start"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			start = t
		}

		repos, _, evals, err := openServices(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer repos.Close()

		summary, err := evals.Evaluate(cmd.Context(), start, end)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("start", "", "window start (RFC3339); defaults to end minus --window")
	evaluateCmd.Flags().String("end", "", "window end (RFC3339); defaults to now")
	evaluateCmd.Flags().Duration("window", 30*24*time.Hour, "window length when --start is not set")

	viper.BindPFlag("evaluate.start", evaluateCmd.Flags().Lookup("start"))
	viper.BindPFlag("evaluate.end", evaluateCmd.Flags().Lookup("end"))
	viper.BindPFlag("evaluate.window", evaluateCmd.Flags().Lookup("window"))
}
