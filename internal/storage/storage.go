package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"care-match/internal/config"
	"care-match/internal/db"
	"care-match/internal/repository"
	"care-match/internal/repository/sqlite"
)

// Repositories agrupa los colaboradores de almacenamiento ya decorados con reintentos.
type Repositories struct {
	Profiles repository.ProfileRepository
	Matches  repository.MatchRepository
	close    func()
}

// Close libera el pool o la base SQLite.
func (r *Repositories) Close() {
	if r != nil && r.close != nil {
		r.close()
	}
}

// Open conecta el backend configurado, aplica migraciones y envuelve los
// repositorios con la politica de reintentos.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Repositories, error) {
	var (
		profiles repository.ProfileRepository
		matches  repository.MatchRepository
		closeFn  func()
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.Ping(pingCtx, pool)
		cancel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := db.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
		profiles = repository.NewPgProfileRepository(pool)
		matches = repository.NewPgMatchRepository(pool)
		closeFn = pool.Close
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		profiles, matches = store, store
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Warn("sqlite close failed", zap.Error(err))
			}
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	policy := repository.DefaultRetryPolicy()
	policy.MaxTries = cfg.StoreRetryAttempts
	logger.Info("storage ready",
		zap.String("driver", cfg.StorageDriver),
		zap.Uint("retry_attempts", policy.MaxTries),
	)
	return &Repositories{
		Profiles: repository.NewRetryingProfileRepository(profiles, policy, logger),
		Matches:  repository.NewRetryingMatchRepository(matches, policy, logger),
		close:    closeFn,
	}, nil
}
