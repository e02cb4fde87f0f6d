package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

// RankingConfig acota el tamaño de las respuestas y el trabajo por request.
type RankingConfig struct {
	DefaultLimit int
	MaxLimit     int
	MaxPool      int
	Workers      int
	Timeout      time.Duration
}

// DefaultRankingConfig devuelve los valores de produccion.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		DefaultLimit: 5,
		MaxLimit:     20,
		MaxPool:      200,
		Workers:      8,
		Timeout:      2 * time.Second,
	}
}

// RankingService puntua y ordena el pool de cuidadores para un paciente.
type RankingService struct {
	profiles repository.ProfileRepository
	scorer   Scorer
	cache    RecommendationCache
	cfg      RankingConfig
	logger   *zap.Logger
}

func NewRankingService(profiles repository.ProfileRepository, scorer Scorer, cache RecommendationCache, cfg RankingConfig, logger *zap.Logger) *RankingService {
	defaults := DefaultRankingConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaults.DefaultLimit
	}
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > defaults.MaxLimit {
		cfg.MaxLimit = defaults.MaxLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cache == nil {
		cache = NoopRecommendationCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{profiles: profiles, scorer: scorer, cache: cache, cfg: cfg, logger: logger}
}

// Recommend devuelve los mejores candidatos para el paciente. limit 0 usa el valor por defecto.
// Si vence el plazo la llamada falla con Timeout; nunca devuelve resultados parciales.
func (s *RankingService) Recommend(ctx context.Context, patientID string, limit int) ([]domain.CompatibilityResult, error) {
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < 1 || limit > s.cfg.MaxLimit {
		return nil, domain.WrapError(domain.CodeInvalidInput, "limit out of range",
			fmt.Errorf("limit %d not in [1,%d]", limit, s.cfg.MaxLimit))
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, invalidInput("patient id is required")
	}

	if cached, ok, err := s.cache.Get(ctx, patientID, limit); err != nil {
		s.logger.Warn("recommendation cache get failed", zap.String("patient_id", patientID), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	results, err := s.rank(ctx, patientID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.CodeTimeout, "ranking deadline exceeded", err)
		}
		return nil, err
	}

	if len(results) > limit {
		results = results[:limit]
	}

	// Los resultados degradados no se cachean: cuando el modelo vuelva, el siguiente request lo usa.
	if n := countDegraded(results); n > 0 {
		s.logger.Warn("serving degraded recommendations",
			zap.String("patient_id", patientID),
			zap.String("scorer", s.scorer.Version()),
			zap.Int("degraded", n),
		)
		return results, nil
	}
	if err := s.cache.Set(ctx, patientID, limit, results); err != nil {
		s.logger.Warn("recommendation cache set failed", zap.String("patient_id", patientID), zap.Error(err))
	}
	return results, nil
}

func countDegraded(results []domain.CompatibilityResult) int {
	n := 0
	for _, r := range results {
		if r.Provenance.Degraded {
			n++
		}
	}
	return n
}

// rank devuelve todos los candidatos puntuados en orden determinista.
func (s *RankingService) rank(ctx context.Context, patientID string) ([]domain.CompatibilityResult, error) {
	patient, patientCtx, err := loadPatient(ctx, s.profiles, patientID)
	if err != nil {
		return nil, err
	}

	pool, err := s.profiles.FetchCandidates(ctx, repository.CandidateFilter{Limit: s.cfg.MaxPool})
	if err != nil {
		return nil, storageError("fetch candidates", err)
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoEligibleCandidates
	}

	scored := make([]*domain.CompatibilityResult, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, cand := range pool {
		if cand.Profile == nil {
			s.logger.Warn("skipping candidate without profile",
				zap.String("patient_id", patientID),
				zap.String("caregiver_id", cand.CaregiverID),
			)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.scorer.Score(gctx, ScoreInput{
				Patient:          patient,
				Caregiver:        cand.Profile,
				PatientContext:   patientCtx,
				CaregiverContext: cand.Context,
			})
			if errors.Is(err, domain.ErrInvalidProfile) {
				s.logger.Warn("skipping candidate with invalid profile",
					zap.String("caregiver_id", cand.CaregiverID),
					zap.Error(err),
				)
				return nil
			}
			if err != nil {
				return err
			}
			res.CaregiverID = cand.CaregiverID
			res.Caregiver = cand.Display
			scored[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.CompatibilityResult, 0, len(scored))
	for _, r := range scored {
		if r != nil {
			results = append(results, *r)
		}
	}
	if len(results) == 0 {
		return nil, domain.ErrNoEligibleCandidates
	}

	SortResults(results)
	return results, nil
}

// SortResults ordena por puntaje descendente, luego suma de sub-puntajes
// descendente y por ultimo id de cuidador ascendente.
func SortResults(results []domain.CompatibilityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if sa, sb := a.SubScores.Sum(), b.SubScores.Sum(); sa != sb {
			return sa > sb
		}
		return a.CaregiverID < b.CaregiverID
	})
}

// Invalidate descarta las recomendaciones cacheadas del paciente.
func (s *RankingService) Invalidate(ctx context.Context, patientID string) {
	if err := s.cache.Invalidate(ctx, patientID); err != nil {
		s.logger.Warn("recommendation cache invalidate failed", zap.String("patient_id", patientID), zap.Error(err))
	}
}
