package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"care-match/internal/service"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate synthetic training rows (JSON lines) from the rule-based scorer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		cfg := service.SynthesisConfig{
			Rows:  viper.GetInt("synthesize.rows"),
			Seed:  viper.GetUint64("synthesize.seed"),
			Noise: viper.GetFloat64("synthesize.noise"),
		}
		samples, err := service.Synthesize(cmd.Context(), service.NewRuleScorer(service.DefaultRuleScorerConfig()), cfg)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if path := viper.GetString("synthesize.out"); path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}

		w := bufio.NewWriter(out)
		enc := json.NewEncoder(w)
		for _, s := range samples {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		logger.Info("synthetic rows written",
			zap.Int("rows", len(samples)),
			zap.Uint64("seed", cfg.Seed),
			zap.Float64("noise", cfg.Noise),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)

	synthesizeCmd.Flags().Int("rows", 5000, "number of rows to generate")
	synthesizeCmd.Flags().Uint64("seed", 1, "random seed")
	synthesizeCmd.Flags().Float64("noise", 5, "standard deviation of the gaussian noise added to the target")
	synthesizeCmd.Flags().StringP("out", "o", "-", "output file, - for stdout")

	viper.BindPFlag("synthesize.rows", synthesizeCmd.Flags().Lookup("rows"))
	viper.BindPFlag("synthesize.seed", synthesizeCmd.Flags().Lookup("seed"))
	viper.BindPFlag("synthesize.noise", synthesizeCmd.Flags().Lookup("noise"))
	viper.BindPFlag("synthesize.out", synthesizeCmd.Flags().Lookup("out"))
}
