package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

const matchColumns = `id, patient_id, caregiver_id, score, grade, status, scorer_version, features, reason, created_at, updated_at, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (domain.MatchRecord, error) {
	var (
		rec                  domain.MatchRecord
		grade, status        string
		features             string
		createdAt, updatedAt int64
		startedAt, endedAt   sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.CaregiverID, &rec.Score, &grade, &status,
		&rec.ScorerVersion, &features, &rec.Reason, &createdAt, &updatedAt, &startedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchRecord{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("scan match: %w", err)
	}
	rec.Grade = domain.Grade(grade)
	rec.Status = domain.MatchStatus(status)
	if rec.Features, err = decodeFeatures(features); err != nil {
		return domain.MatchRecord{}, err
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	rec.StartedAt = fromNullMillis(startedAt)
	rec.EndedAt = fromNullMillis(endedAt)
	return rec, nil
}

// CreateActive inserta el match y su primera entrada de historial en una transaccion.
func (s *Store) CreateActive(ctx context.Context, rec domain.MatchRecord, entry domain.MatchHistoryEntry) error {
	features, err := encodeFeatures(rec.Features)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PatientID, rec.CaregiverID, rec.Score, string(rec.Grade), string(rec.Status),
		rec.ScorerVersion, features, rec.Reason, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
		toNullMillis(rec.StartedAt), toNullMillis(rec.EndedAt),
	)
	if err != nil {
		if isActivePairViolation(err) {
			return repository.ErrActiveMatchExists
		}
		return fmt.Errorf("insert match: %w", err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Update aplica fn al match dentro de una transaccion de escritura.
func (s *Store) Update(ctx context.Context, id string, fn repository.MatchMutation) (domain.MatchRecord, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanMatch(tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	if err != nil {
		return domain.MatchRecord{}, err
	}

	entry, err := fn(&rec)
	if err != nil {
		return domain.MatchRecord{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE matches SET status = ?, reason = ?, updated_at = ?, started_at = ?, ended_at = ? WHERE id = ?`,
		string(rec.Status), rec.Reason, toMillis(rec.UpdatedAt), toNullMillis(rec.StartedAt), toNullMillis(rec.EndedAt), rec.ID,
	)
	if err != nil {
		if isActivePairViolation(err) {
			return domain.MatchRecord{}, repository.ErrActiveMatchExists
		}
		return domain.MatchRecord{}, fmt.Errorf("update match: %w", err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return domain.MatchRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.MatchRecord, error) {
	return scanMatch(s.sqlDB.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
}

func (s *Store) FindActive(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	return scanMatch(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE patient_id = ? AND caregiver_id = ? AND status = 'active'`,
		patientID, caregiverID,
	))
}

func (s *Store) Query(ctx context.Context, filter repository.MatchFilter) ([]domain.MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1 = 1`
	var args []any
	if filter.PatientID != "" {
		query += " AND patient_id = ?"
		args = append(args, filter.PatientID)
	}
	if filter.CaregiverID != "" {
		query += " AND caregiver_id = ?"
		args = append(args, filter.CaregiverID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN (?" + strings.Repeat(",?", len(filter.Statuses)-1) + ")"
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if filter.CreatedFrom != nil {
		query += " AND created_at >= ?"
		args = append(args, toMillis(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		query += " AND created_at <= ?"
		args = append(args, toMillis(*filter.CreatedTo))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
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

func (s *Store) ListHistory(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, match_id, status, reason, created_at FROM match_history WHERE match_id = ? ORDER BY created_at ASC, rowid ASC`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchHistoryEntry
	for rows.Next() {
		var (
			e         domain.MatchHistoryEntry
			status    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.MatchID, &status, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = domain.MatchStatus(status)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry domain.MatchHistoryEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO match_history (id, match_id, status, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.MatchID, string(entry.Status), entry.Reason, toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}
