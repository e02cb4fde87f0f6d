package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

func (s *Store) FetchProfile(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.PersonalityProfile, error) {
	var (
		p         domain.PersonalityProfile
		owner     string
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT owner_type, owner_id, empathy, activity, patience, independence, updated_at
		FROM personality_profiles
		WHERE owner_type = ? AND owner_id = ?`,
		string(ownerType), ownerID,
	).Scan(&owner, &p.OwnerID, &p.Empathy, &p.Activity, &p.Patience, &p.Independence, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PersonalityProfile{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.PersonalityProfile{}, fmt.Errorf("fetch profile: %w", err)
	}
	p.OwnerType = domain.OwnerType(owner)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (s *Store) FetchCareContext(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.CareContext, error) {
	var (
		c           domain.CareContext
		owner       string
		specialties string
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT owner_type, owner_id, care_level, specialties, region, experience_years, disease_count
		FROM care_contexts
		WHERE owner_type = ? AND owner_id = ?`,
		string(ownerType), ownerID,
	).Scan(&owner, &c.OwnerID, &c.CareLevel, &specialties, &c.Region, &c.ExperienceYears, &c.DiseaseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CareContext{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.CareContext{}, fmt.Errorf("fetch care context: %w", err)
	}
	c.OwnerType = domain.OwnerType(owner)
	if c.Specialties, err = decodeStrings(specialties); err != nil {
		return domain.CareContext{}, err
	}
	return c, nil
}

func (s *Store) FetchCaregiverDisplay(ctx context.Context, caregiverID string) (domain.CaregiverDisplay, error) {
	var d domain.CaregiverDisplay
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, display_name, hourly_rate, rating FROM caregivers WHERE id = ?`, caregiverID,
	).Scan(&d.CaregiverID, &d.DisplayName, &d.HourlyRate, &d.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CaregiverDisplay{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.CaregiverDisplay{}, fmt.Errorf("fetch caregiver display: %w", err)
	}
	return d, nil
}

func (s *Store) FetchCandidates(ctx context.Context, filter repository.CandidateFilter) ([]domain.CandidateCaregiver, error) {
	query := `
		SELECT c.id, c.display_name, c.hourly_rate, c.rating,
			p.empathy, p.activity, p.patience, p.independence, p.updated_at,
			cc.care_level, cc.specialties, cc.region, cc.experience_years, cc.disease_count
		FROM caregivers c
		LEFT JOIN personality_profiles p ON p.owner_type = 'caregiver' AND p.owner_id = c.id
		LEFT JOIN care_contexts cc ON cc.owner_type = 'caregiver' AND cc.owner_id = c.id
		WHERE c.active = 1`
	var args []any
	if region := strings.TrimSpace(filter.Region); region != "" {
		query += " AND cc.region LIKE ?"
		args = append(args, region+"%")
	}
	if len(filter.ExcludeIDs) > 0 {
		query += " AND c.id NOT IN (?" + strings.Repeat(",?", len(filter.ExcludeIDs)-1) + ")"
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY c.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.CandidateCaregiver
	for rows.Next() {
		var (
			d                                     domain.CaregiverDisplay
			empathy, activity, patience, independ sql.NullFloat64
			updatedAt                             sql.NullInt64
			careLevel, diseaseCount               sql.NullInt64
			specialties, region                   sql.NullString
			experience                            sql.NullFloat64
		)
		if err := rows.Scan(
			&d.CaregiverID, &d.DisplayName, &d.HourlyRate, &d.Rating,
			&empathy, &activity, &patience, &independ, &updatedAt,
			&careLevel, &specialties, &region, &experience, &diseaseCount,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		cand := domain.CandidateCaregiver{CaregiverID: d.CaregiverID, Display: d}
		if empathy.Valid && activity.Valid && patience.Valid && independ.Valid {
			cand.Profile = &domain.PersonalityProfile{
				OwnerType:    domain.OwnerCaregiver,
				OwnerID:      d.CaregiverID,
				Empathy:      empathy.Float64,
				Activity:     activity.Float64,
				Patience:     patience.Float64,
				Independence: independ.Float64,
				UpdatedAt:    fromMillis(updatedAt.Int64),
			}
		}
		if careLevel.Valid {
			specs, err := decodeStrings(specialties.String)
			if err != nil {
				return nil, err
			}
			cand.Context = &domain.CareContext{
				OwnerType:       domain.OwnerCaregiver,
				OwnerID:         d.CaregiverID,
				CareLevel:       int(careLevel.Int64),
				Specialties:     specs,
				Region:          region.String,
				ExperienceYears: experience.Float64,
				DiseaseCount:    int(diseaseCount.Int64),
			}
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProfile(ctx context.Context, profile domain.PersonalityProfile) error {
	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO personality_profiles (owner_type, owner_id, empathy, activity, patience, independence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_type, owner_id) DO UPDATE SET
			empathy = excluded.empathy,
			activity = excluded.activity,
			patience = excluded.patience,
			independence = excluded.independence,
			updated_at = excluded.updated_at`,
		string(profile.OwnerType), profile.OwnerID,
		profile.Empathy, profile.Activity, profile.Patience, profile.Independence,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *Store) UpsertCareContext(ctx context.Context, careCtx domain.CareContext) error {
	specialties, err := encodeStrings(careCtx.Specialties)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO care_contexts (owner_type, owner_id, care_level, specialties, region, experience_years, disease_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_type, owner_id) DO UPDATE SET
			care_level = excluded.care_level,
			specialties = excluded.specialties,
			region = excluded.region,
			experience_years = excluded.experience_years,
			disease_count = excluded.disease_count`,
		string(careCtx.OwnerType), careCtx.OwnerID, careCtx.CareLevel, specialties,
		careCtx.Region, careCtx.ExperienceYears, careCtx.DiseaseCount,
	)
	if err != nil {
		return fmt.Errorf("upsert care context: %w", err)
	}
	return nil
}

func (s *Store) UpsertCaregiverDisplay(ctx context.Context, display domain.CaregiverDisplay) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO caregivers (id, display_name, hourly_rate, rating, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			hourly_rate = excluded.hourly_rate,
			rating = excluded.rating`,
		display.CaregiverID, display.DisplayName, display.HourlyRate, display.Rating,
	)
	if err != nil {
		return fmt.Errorf("upsert caregiver: %w", err)
	}
	return nil
}
