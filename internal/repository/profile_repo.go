package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"care-match/internal/domain"
)

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) FetchProfile(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.PersonalityProfile, error) {
	const query = `
		SELECT owner_type, owner_id, empathy, activity, patience, independence, updated_at
		FROM personality_profiles
		WHERE owner_type = $1 AND owner_id = $2
	`
	var p domain.PersonalityProfile
	err := r.pool.QueryRow(ctx, query, string(ownerType), ownerID).Scan(
		&p.OwnerType,
		&p.OwnerID,
		&p.Empathy,
		&p.Activity,
		&p.Patience,
		&p.Independence,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PersonalityProfile{}, ErrNotFound
	}
	return p, err
}

func (r *PgProfileRepository) FetchCareContext(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.CareContext, error) {
	const query = `
		SELECT owner_type, owner_id, care_level, specialties, region, experience_years, disease_count
		FROM care_contexts
		WHERE owner_type = $1 AND owner_id = $2
	`
	var c domain.CareContext
	err := r.pool.QueryRow(ctx, query, string(ownerType), ownerID).Scan(
		&c.OwnerType,
		&c.OwnerID,
		&c.CareLevel,
		&c.Specialties,
		&c.Region,
		&c.ExperienceYears,
		&c.DiseaseCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CareContext{}, ErrNotFound
	}
	return c, err
}

func (r *PgProfileRepository) FetchCaregiverDisplay(ctx context.Context, caregiverID string) (domain.CaregiverDisplay, error) {
	const query = `
		SELECT id, display_name, hourly_rate, rating
		FROM caregivers
		WHERE id = $1
	`
	var d domain.CaregiverDisplay
	err := r.pool.QueryRow(ctx, query, caregiverID).Scan(&d.CaregiverID, &d.DisplayName, &d.HourlyRate, &d.Rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CaregiverDisplay{}, ErrNotFound
	}
	return d, err
}

// FetchCandidates devuelve cuidadores activos con su perfil y contexto si existen.
func (r *PgProfileRepository) FetchCandidates(ctx context.Context, filter CandidateFilter) ([]domain.CandidateCaregiver, error) {
	var (
		where []string
		args  []any
	)
	if region := strings.TrimSpace(filter.Region); region != "" {
		args = append(args, region+"%")
		where = append(where, fmt.Sprintf("cc.region LIKE $%d", len(args)))
	}
	if len(filter.ExcludeIDs) > 0 {
		args = append(args, filter.ExcludeIDs)
		where = append(where, fmt.Sprintf("NOT (c.id = ANY($%d))", len(args)))
	}

	query := `
		SELECT c.id, c.display_name, c.hourly_rate, c.rating,
			p.empathy, p.activity, p.patience, p.independence, p.updated_at,
			cc.care_level, cc.specialties, cc.region, cc.experience_years, cc.disease_count
		FROM caregivers c
		LEFT JOIN personality_profiles p ON p.owner_type = 'caregiver' AND p.owner_id = c.id
		LEFT JOIN care_contexts cc ON cc.owner_type = 'caregiver' AND cc.owner_id = c.id
		WHERE c.active`
	for _, w := range where {
		query += " AND " + w
	}
	query += " ORDER BY c.id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CandidateCaregiver
	for rows.Next() {
		var cand candidateRow
		if err := rows.Scan(cand.targets()...); err != nil {
			return nil, err
		}
		out = append(out, cand.candidate())
	}
	return out, rows.Err()
}

// candidateRow recibe las columnas nulas del LEFT JOIN de candidatos.
type candidateRow struct {
	display      domain.CaregiverDisplay
	empathy      *float64
	activity     *float64
	patience     *float64
	independence *float64
	updatedAt    *time.Time
	careLevel    *int
	specialties  []string
	region       *string
	experience   *float64
	diseaseCount *int
}

func (c *candidateRow) targets() []any {
	return []any{
		&c.display.CaregiverID, &c.display.DisplayName, &c.display.HourlyRate, &c.display.Rating,
		&c.empathy, &c.activity, &c.patience, &c.independence, &c.updatedAt,
		&c.careLevel, &c.specialties, &c.region, &c.experience, &c.diseaseCount,
	}
}

func (c *candidateRow) candidate() domain.CandidateCaregiver {
	out := domain.CandidateCaregiver{
		CaregiverID: c.display.CaregiverID,
		Display:     c.display,
	}
	if c.empathy != nil && c.activity != nil && c.patience != nil && c.independence != nil {
		p := domain.PersonalityProfile{
			OwnerType:    domain.OwnerCaregiver,
			OwnerID:      c.display.CaregiverID,
			Empathy:      *c.empathy,
			Activity:     *c.activity,
			Patience:     *c.patience,
			Independence: *c.independence,
		}
		if c.updatedAt != nil {
			p.UpdatedAt = *c.updatedAt
		}
		out.Profile = &p
	}
	if c.careLevel != nil {
		cc := domain.CareContext{
			OwnerType:   domain.OwnerCaregiver,
			OwnerID:     c.display.CaregiverID,
			CareLevel:   *c.careLevel,
			Specialties: c.specialties,
		}
		if c.region != nil {
			cc.Region = *c.region
		}
		if c.experience != nil {
			cc.ExperienceYears = *c.experience
		}
		if c.diseaseCount != nil {
			cc.DiseaseCount = *c.diseaseCount
		}
		out.Context = &cc
	}
	return out
}

func (r *PgProfileRepository) UpsertProfile(ctx context.Context, profile domain.PersonalityProfile) error {
	const query = `
		INSERT INTO personality_profiles (owner_type, owner_id, empathy, activity, patience, independence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_type, owner_id) DO UPDATE SET
			empathy = EXCLUDED.empathy,
			activity = EXCLUDED.activity,
			patience = EXCLUDED.patience,
			independence = EXCLUDED.independence,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		string(profile.OwnerType),
		profile.OwnerID,
		profile.Empathy,
		profile.Activity,
		profile.Patience,
		profile.Independence,
		profile.UpdatedAt,
	)
	return err
}

func (r *PgProfileRepository) UpsertCareContext(ctx context.Context, careCtx domain.CareContext) error {
	const query = `
		INSERT INTO care_contexts (owner_type, owner_id, care_level, specialties, region, experience_years, disease_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_type, owner_id) DO UPDATE SET
			care_level = EXCLUDED.care_level,
			specialties = EXCLUDED.specialties,
			region = EXCLUDED.region,
			experience_years = EXCLUDED.experience_years,
			disease_count = EXCLUDED.disease_count
	`
	specialties := careCtx.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		string(careCtx.OwnerType),
		careCtx.OwnerID,
		careCtx.CareLevel,
		specialties,
		careCtx.Region,
		careCtx.ExperienceYears,
		careCtx.DiseaseCount,
	)
	return err
}

func (r *PgProfileRepository) UpsertCaregiverDisplay(ctx context.Context, display domain.CaregiverDisplay) error {
	const query = `
		INSERT INTO caregivers (id, display_name, hourly_rate, rating, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			hourly_rate = EXCLUDED.hourly_rate,
			rating = EXCLUDED.rating
	`
	_, err := r.pool.Exec(ctx, query, display.CaregiverID, display.DisplayName, display.HourlyRate, display.Rating)
	return err
}
