package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"care-match/internal/domain"
)

// ActivePairIndex es el indice unico parcial sobre (patient_id, caregiver_id) WHERE status = 'active'.
const ActivePairIndex = "matches_active_pair_idx"

const pgUniqueViolation = "23505"

type PgMatchRepository struct {
	pool *pgxpool.Pool
}

func NewPgMatchRepository(pool *pgxpool.Pool) *PgMatchRepository {
	return &PgMatchRepository{pool: pool}
}

const matchColumns = `id, patient_id, caregiver_id, score, grade, status, scorer_version, features, reason, created_at, updated_at, started_at, ended_at`

func (r *PgMatchRepository) CreateActive(ctx context.Context, rec domain.MatchRecord, entry domain.MatchHistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertMatch = `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.Exec(ctx, insertMatch,
		rec.ID,
		rec.PatientID,
		rec.CaregiverID,
		rec.Score,
		string(rec.Grade),
		string(rec.Status),
		rec.ScorerVersion,
		featureVector(rec.Features),
		rec.Reason,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.StartedAt,
		rec.EndedAt,
	)
	if err != nil {
		if isActivePairViolation(err) {
			return ErrActiveMatchExists
		}
		return fmt.Errorf("insert match: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgMatchRepository) Update(ctx context.Context, id string, fn MatchMutation) (domain.MatchRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := scanMatch(tx.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.MatchRecord{}, err
	}

	entry, err := fn(&rec)
	if err != nil {
		return domain.MatchRecord{}, err
	}

	const update = `
		UPDATE matches
		SET status = $2, reason = $3, updated_at = $4, started_at = $5, ended_at = $6
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, rec.ID, string(rec.Status), rec.Reason, rec.UpdatedAt, rec.StartedAt, rec.EndedAt); err != nil {
		if isActivePairViolation(err) {
			return domain.MatchRecord{}, ErrActiveMatchExists
		}
		return domain.MatchRecord{}, fmt.Errorf("update match: %w", err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return domain.MatchRecord{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (r *PgMatchRepository) Get(ctx context.Context, id string) (domain.MatchRecord, error) {
	return scanMatch(r.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
}

func (r *PgMatchRepository) FindActive(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	const query = `SELECT ` + matchColumns + ` FROM matches WHERE patient_id = $1 AND caregiver_id = $2 AND status = 'active'`
	return scanMatch(r.pool.QueryRow(ctx, query, patientID, caregiverID))
}

// Query devuelve los matches que cumplen el filtro ordenados por created_at descendente.
func (r *PgMatchRepository) Query(ctx context.Context, filter MatchFilter) ([]domain.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE TRUE`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.PatientID != "" {
		add("patient_id = $%d", filter.PatientID)
	}
	if filter.CaregiverID != "" {
		add("caregiver_id = $%d", filter.CaregiverID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PgMatchRepository) ListHistory(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error) {
	const query = `
		SELECT id, match_id, status, reason, created_at
		FROM match_history
		WHERE match_id = $1
		ORDER BY created_at ASC, id
	`
	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatchHistoryEntry
	for rows.Next() {
		var e domain.MatchHistoryEntry
		if err := rows.Scan(&e.ID, &e.MatchID, &e.Status, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry domain.MatchHistoryEntry) error {
	const query = `
		INSERT INTO match_history (id, match_id, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, entry.ID, entry.MatchID, string(entry.Status), entry.Reason, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func scanMatch(row pgx.Row) (domain.MatchRecord, error) {
	var (
		rec      domain.MatchRecord
		features *pgvector.Vector
		started  *time.Time
		ended    *time.Time
	)
	err := row.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.CaregiverID,
		&rec.Score,
		&rec.Grade,
		&rec.Status,
		&rec.ScorerVersion,
		&features,
		&rec.Reason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&started,
		&ended,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.MatchRecord{}, err
	}
	if features != nil {
		rec.Features = features.Slice()
	}
	rec.StartedAt = started
	rec.EndedAt = ended
	return rec, nil
}

func featureVector(values []float32) any {
	if len(values) == 0 {
		return nil
	}
	return pgvector.NewVector(values)
}

func isActivePairViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == ActivePairIndex
	}
	return false
}
