package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	ScorerRule    = "rule"
	ScorerLearned = "learned"

	// MaxRecommendationLimit es la cota superior de resultados por request.
	MaxRecommendationLimit = 20
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"care-match.db"`
	DBMaxConns    int    `env:"DB_MAX_CONNS" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ModelPath                 string        `env:"MODEL_PATH"`
	ModelRetryInterval        time.Duration `env:"MODEL_RETRY_INTERVAL" envDefault:"30s"`
	ScorerStrategy            string        `env:"SCORER_STRATEGY" envDefault:"rule"`
	RuleInteractionEnabled    bool          `env:"RULE_INTERACTION_ENABLED" envDefault:"true"`
	LearnedInteractionEnabled bool          `env:"LEARNED_INTERACTION_ENABLED" envDefault:"false"`

	RankingDefaultLimit    int           `env:"RANKING_DEFAULT_LIMIT" envDefault:"5"`
	RankingMaxLimit        int           `env:"RANKING_MAX_LIMIT" envDefault:"20"`
	RankingMaxPool         int           `env:"RANKING_MAX_POOL" envDefault:"200"`
	RankingWorkers         int           `env:"RANKING_WORKERS" envDefault:"8"`
	RankingTimeout         time.Duration `env:"RANKING_TIMEOUT" envDefault:"2s"`
	RecommendationCacheTTL time.Duration `env:"RECOMMENDATION_CACHE_TTL" envDefault:"5m"`

	StoreRetryAttempts uint `env:"STORE_RETRY_ATTEMPTS" envDefault:"3"`

	LogJSON  bool `env:"LOG_JSON" envDefault:"true"`
	LogDebug bool `env:"LOG_DEBUG" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.ScorerStrategy = strings.ToLower(strings.TrimSpace(cfg.ScorerStrategy))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones inconsistentes.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
		if c.DBMaxConns < 1 {
			errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns))
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for sqlite storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.ScorerStrategy {
	case ScorerRule:
	case ScorerLearned:
		if strings.TrimSpace(c.ModelPath) == "" {
			errs = append(errs, errors.New("MODEL_PATH is required for the learned scorer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SCORER_STRATEGY %q", c.ScorerStrategy))
	}

	if c.RankingMaxLimit < 1 || c.RankingMaxLimit > MaxRecommendationLimit {
		errs = append(errs, fmt.Errorf("RANKING_MAX_LIMIT must be in [1,%d], got %d", MaxRecommendationLimit, c.RankingMaxLimit))
	}
	if c.RankingDefaultLimit < 1 || c.RankingDefaultLimit > c.RankingMaxLimit {
		errs = append(errs, fmt.Errorf("RANKING_DEFAULT_LIMIT must be in [1,%d], got %d", c.RankingMaxLimit, c.RankingDefaultLimit))
	}
	if c.RankingMaxPool < c.RankingMaxLimit {
		errs = append(errs, fmt.Errorf("RANKING_MAX_POOL must be at least RANKING_MAX_LIMIT, got %d", c.RankingMaxPool))
	}
	if c.RankingWorkers < 1 {
		errs = append(errs, fmt.Errorf("RANKING_WORKERS must be positive, got %d", c.RankingWorkers))
	}
	if c.RankingTimeout < 0 || c.RecommendationCacheTTL < 0 || c.ModelRetryInterval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.StoreRetryAttempts < 1 {
		errs = append(errs, errors.New("STORE_RETRY_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}
