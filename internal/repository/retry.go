package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"care-match/internal/domain"
)

// RetryPolicy acota los reintentos de errores transitorios de almacenamiento.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy reintenta hasta tres veces con backoff exponencial corto.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 50 * time.Millisecond, MaxInterval: time.Second}
}

// IsTransient indica si err vale la pena reintentarlo: conexion perdida,
// conflicto de serializacion, deadlock o base SQLite ocupada.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrActiveMatchExists) {
		return false
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		default:
			return false
		}
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	tries := policy.MaxTries
	if tries == 0 {
		tries = 1
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		logger.Warn("transient storage error",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}

// RetryingProfileRepository reintenta errores transitorios del repositorio envuelto.
type RetryingProfileRepository struct {
	inner  ProfileRepository
	policy RetryPolicy
	logger *zap.Logger
}

func NewRetryingProfileRepository(inner ProfileRepository, policy RetryPolicy, logger *zap.Logger) *RetryingProfileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProfileRepository{inner: inner, policy: policy, logger: logger}
}

func (r *RetryingProfileRepository) FetchProfile(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.PersonalityProfile, error) {
	return withRetry(ctx, r.policy, r.logger, "fetch_profile", func() (domain.PersonalityProfile, error) {
		return r.inner.FetchProfile(ctx, ownerType, ownerID)
	})
}

func (r *RetryingProfileRepository) FetchCareContext(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.CareContext, error) {
	return withRetry(ctx, r.policy, r.logger, "fetch_care_context", func() (domain.CareContext, error) {
		return r.inner.FetchCareContext(ctx, ownerType, ownerID)
	})
}

func (r *RetryingProfileRepository) FetchCandidates(ctx context.Context, filter CandidateFilter) ([]domain.CandidateCaregiver, error) {
	return withRetry(ctx, r.policy, r.logger, "fetch_candidates", func() ([]domain.CandidateCaregiver, error) {
		return r.inner.FetchCandidates(ctx, filter)
	})
}

func (r *RetryingProfileRepository) FetchCaregiverDisplay(ctx context.Context, caregiverID string) (domain.CaregiverDisplay, error) {
	return withRetry(ctx, r.policy, r.logger, "fetch_caregiver_display", func() (domain.CaregiverDisplay, error) {
		return r.inner.FetchCaregiverDisplay(ctx, caregiverID)
	})
}

func (r *RetryingProfileRepository) UpsertProfile(ctx context.Context, profile domain.PersonalityProfile) error {
	_, err := withRetry(ctx, r.policy, r.logger, "upsert_profile", func() (struct{}, error) {
		return struct{}{}, r.inner.UpsertProfile(ctx, profile)
	})
	return err
}

func (r *RetryingProfileRepository) UpsertCareContext(ctx context.Context, careCtx domain.CareContext) error {
	_, err := withRetry(ctx, r.policy, r.logger, "upsert_care_context", func() (struct{}, error) {
		return struct{}{}, r.inner.UpsertCareContext(ctx, careCtx)
	})
	return err
}

func (r *RetryingProfileRepository) UpsertCaregiverDisplay(ctx context.Context, display domain.CaregiverDisplay) error {
	_, err := withRetry(ctx, r.policy, r.logger, "upsert_caregiver_display", func() (struct{}, error) {
		return struct{}{}, r.inner.UpsertCaregiverDisplay(ctx, display)
	})
	return err
}

// RetryingMatchRepository reintenta errores transitorios del repositorio de matches.
// Cada intento es una transaccion completa, por lo que reintentar no duplica escrituras.
type RetryingMatchRepository struct {
	inner  MatchRepository
	policy RetryPolicy
	logger *zap.Logger
}

func NewRetryingMatchRepository(inner MatchRepository, policy RetryPolicy, logger *zap.Logger) *RetryingMatchRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingMatchRepository{inner: inner, policy: policy, logger: logger}
}

func (r *RetryingMatchRepository) CreateActive(ctx context.Context, rec domain.MatchRecord, entry domain.MatchHistoryEntry) error {
	_, err := withRetry(ctx, r.policy, r.logger, "create_match", func() (struct{}, error) {
		return struct{}{}, r.inner.CreateActive(ctx, rec, entry)
	})
	return err
}

func (r *RetryingMatchRepository) Update(ctx context.Context, id string, fn MatchMutation) (domain.MatchRecord, error) {
	return withRetry(ctx, r.policy, r.logger, "update_match", func() (domain.MatchRecord, error) {
		return r.inner.Update(ctx, id, fn)
	})
}

func (r *RetryingMatchRepository) Get(ctx context.Context, id string) (domain.MatchRecord, error) {
	return withRetry(ctx, r.policy, r.logger, "get_match", func() (domain.MatchRecord, error) {
		return r.inner.Get(ctx, id)
	})
}

func (r *RetryingMatchRepository) FindActive(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	return withRetry(ctx, r.policy, r.logger, "find_active_match", func() (domain.MatchRecord, error) {
		return r.inner.FindActive(ctx, patientID, caregiverID)
	})
}

func (r *RetryingMatchRepository) Query(ctx context.Context, filter MatchFilter) ([]domain.MatchRecord, error) {
	return withRetry(ctx, r.policy, r.logger, "query_matches", func() ([]domain.MatchRecord, error) {
		return r.inner.Query(ctx, filter)
	})
}

func (r *RetryingMatchRepository) ListHistory(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error) {
	return withRetry(ctx, r.policy, r.logger, "list_history", func() ([]domain.MatchHistoryEntry, error) {
		return r.inner.ListHistory(ctx, matchID)
	})
}
