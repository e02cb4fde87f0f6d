package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"care-match/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured storage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repos, err := storage.Open(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		repos.Close()
		logger.Info("migrations applied", zap.String("driver", cfg.StorageDriver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
