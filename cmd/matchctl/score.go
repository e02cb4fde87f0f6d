package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a patient/caregiver pair without creating a match",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		patientID, caregiverID := viper.GetString("score.patient"), viper.GetString("score.caregiver")
		if patientID == "" || caregiverID == "" {
			return errors.New("--patient and --caregiver are required")
		}

		repos, matches, _, err := openServices(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer repos.Close()

		res, err := matches.Preview(cmd.Context(), patientID, caregiverID)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("patient", "", "patient id")
	scoreCmd.Flags().String("caregiver", "", "caregiver id")

	viper.BindPFlag("score.patient", scoreCmd.Flags().Lookup("patient"))
	viper.BindPFlag("score.caregiver", scoreCmd.Flags().Lookup("caregiver"))
}
