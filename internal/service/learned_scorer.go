package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/model"
)

// LearnedScorer puntua con un modelo de regresion entrenado offline.
type LearnedScorer struct {
	provider    model.Provider
	interaction bool
	logger      *zap.Logger
}

// NewLearnedScorer recibe el provider del modelo desde la raiz de composicion.
// interaction habilita el ajuste por empatia sobre la salida del modelo.
func NewLearnedScorer(provider model.Provider, interaction bool, logger *zap.Logger) *LearnedScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearnedScorer{provider: provider, interaction: interaction, logger: logger}
}

func (s *LearnedScorer) Version() string { return LearnedScorerVersion }

func (s *LearnedScorer) Score(ctx context.Context, in ScoreInput) (domain.CompatibilityResult, error) {
	if err := in.validate(); err != nil {
		return domain.CompatibilityResult{}, err
	}
	if s.provider == nil {
		return domain.CompatibilityResult{}, domain.ErrModelUnavailable
	}

	regressor, err := s.provider.Get(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.CompatibilityResult{}, err
		}
		return domain.CompatibilityResult{}, domain.WrapError(domain.CodeModelUnavailable, domain.ErrModelUnavailable.Message, err)
	}

	features := BuildFeatures(in)
	raw, err := regressor.Predict(features.Vector())
	if err != nil {
		return domain.CompatibilityResult{}, domain.WrapError(domain.CodeModelUnavailable, domain.ErrModelUnavailable.Message,
			fmt.Errorf("predict with %s: %w", regressor.Version(), err))
	}

	sub := subScoresFromDiffs(features.Diffs())
	total := raw
	if s.interaction {
		total += empathyAdjustment(sub.Empathy)
	}
	score := roundScore(clipScore(total))

	return domain.CompatibilityResult{
		PatientID:   in.Patient.OwnerID,
		CaregiverID: in.Caregiver.OwnerID,
		Score:       score,
		Grade:       domain.CoarseGradeForScore(score),
		SubScores:   sub,
		Rationale:   Explain(features),
		Provenance:  domain.Provenance{ScorerVersion: LearnedScorerVersion + "/" + regressor.Version()},
		Features:    features.Vector(),
	}, nil
}

// FallbackScorer intenta el scorer primario y, si el modelo no esta disponible,
// usa el secundario marcando el resultado como degradado.
type FallbackScorer struct {
	primary   Scorer
	secondary Scorer
	logger    *zap.Logger
}

func NewFallbackScorer(primary, secondary Scorer, logger *zap.Logger) *FallbackScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackScorer{primary: primary, secondary: secondary, logger: logger}
}

func (s *FallbackScorer) Version() string { return s.primary.Version() }

func (s *FallbackScorer) Score(ctx context.Context, in ScoreInput) (domain.CompatibilityResult, error) {
	res, err := s.primary.Score(ctx, in)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, domain.ErrModelUnavailable) {
		return domain.CompatibilityResult{}, err
	}

	s.logger.Debug("primary scorer unavailable, using fallback",
		zap.String("primary", s.primary.Version()),
		zap.String("fallback", s.secondary.Version()),
		zap.Error(err),
	)
	res, err = s.secondary.Score(ctx, in)
	if err != nil {
		return domain.CompatibilityResult{}, err
	}
	res.Provenance.Degraded = true
	return res, nil
}

// NewScorer selecciona la estrategia configurada: "rule" o "learned".
func NewScorer(strategy string, rule *RuleScorer, learned *LearnedScorer, logger *zap.Logger) (Scorer, error) {
	switch strategy {
	case "", "rule":
		return rule, nil
	case "learned":
		return NewFallbackScorer(learned, rule, logger), nil
	default:
		return nil, fmt.Errorf("unknown scorer strategy %q", strategy)
	}
}
