package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"care-match/internal/db/migrations"
)

const migrationTable = "schema_migrations"

// Migrate aplica las migraciones embebidas pendientes, cada una en su transaccion.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return ApplyMigrations(ctx, pool, migrations.FS, logger)
}

// ApplyMigrations aplica cada archivo .sql de migrationFS a lo sumo una vez.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, migrationFS fs.FS, logger *zap.Logger) error {
	if pool == nil {
		return errors.New("db pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := SQLFiles(migrationFS)
	if err != nil {
		return err
	}

	createSQL := `
		CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := ExtractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var found int
			err := tx.QueryRow(ctx, `SELECT 1 FROM `+migrationTable+` WHERE name = $1`, file).Scan(&found)
			if err == nil {
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("check migration: %w", err)
			}
			if _, err := tx.Exec(ctx, upSQL); err != nil {
				return fmt.Errorf("exec migration: %w", err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO `+migrationTable+` (name) VALUES ($1)`, file); err != nil {
				return fmt.Errorf("record migration: %w", err)
			}
			logger.Info("migration applied", zap.String("file", file))
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", file, err)
		}
	}
	return nil
}

// SQLFiles lista los .sql en la raiz de migrationFS en orden lexicografico.
func SQLFiles(migrationFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExtractUp devuelve el SQL de la seccion "-- +migrate Up".
func ExtractUp(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
