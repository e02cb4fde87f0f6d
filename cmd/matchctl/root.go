package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"care-match/internal/config"
	"care-match/internal/logger"
	"care-match/internal/model"
	"care-match/internal/service"
	"care-match/internal/storage"
)

const app = "matchctl"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "matchctl operates the care-match engine: migrations, evaluations, scoring and model training",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetEnvPrefix("MATCHCTL")
	viper.AutomaticEnv()
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// loadConfig lee .env y las variables del servicio, igual que la API.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.LoadConfig()
}

// openServices arma almacenamiento y servicios para los comandos que tocan la base.
func openServices(ctx context.Context, logger *zap.Logger) (*storage.Repositories, *service.MatchService, *service.EvaluationService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	repos, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	ruleCfg := service.DefaultRuleScorerConfig()
	ruleCfg.Interaction = cfg.RuleInteractionEnabled
	rule := service.NewRuleScorer(ruleCfg)
	learned := service.NewLearnedScorer(model.NewFileProvider(cfg.ModelPath, cfg.ModelRetryInterval, logger), cfg.LearnedInteractionEnabled, logger)
	scorer, err := service.NewScorer(cfg.ScorerStrategy, rule, learned, logger)
	if err != nil {
		repos.Close()
		return nil, nil, nil, err
	}

	matches := service.NewMatchService(repos.Profiles, repos.Matches, scorer, nil, logger)
	evals := service.NewEvaluationService(repos.Matches, logger)
	return repos, matches, evals, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
