package service

import (
	"context"

	"care-match/internal/domain"
)

// RuleScorerConfig ajusta los terminos opcionales del scorer por reglas.
type RuleScorerConfig struct {
	Interaction            bool
	SpecialtyBonus         float64
	SpecialtyMinExperience float64
	HighCareLevel          int
	HighCareMinExperience  float64
	HighCarePenalty        float64
}

// DefaultRuleScorerConfig devuelve los valores de produccion.
func DefaultRuleScorerConfig() RuleScorerConfig {
	return RuleScorerConfig{
		Interaction:            true,
		SpecialtyBonus:         5,
		SpecialtyMinExperience: 2,
		HighCareLevel:          5,
		HighCareMinExperience:  3,
		HighCarePenalty:        10,
	}
}

// RuleScorer calcula la compatibilidad con la formula ponderada. Es determinista.
type RuleScorer struct {
	cfg RuleScorerConfig
}

func NewRuleScorer(cfg RuleScorerConfig) *RuleScorer {
	return &RuleScorer{cfg: cfg}
}

func (s *RuleScorer) Version() string { return RuleScorerVersion }

func (s *RuleScorer) Score(_ context.Context, in ScoreInput) (domain.CompatibilityResult, error) {
	if err := in.validate(); err != nil {
		return domain.CompatibilityResult{}, err
	}

	features := BuildFeatures(in)
	sub := subScoresFromDiffs(features.Diffs())
	total := weightedTotal(sub)
	if s.cfg.Interaction {
		total += empathyAdjustment(sub.Empathy)
	}
	total += s.contextAdjustment(in)

	score := roundScore(clipScore(total))
	return domain.CompatibilityResult{
		PatientID:   in.Patient.OwnerID,
		CaregiverID: in.Caregiver.OwnerID,
		Score:       score,
		Grade:       domain.GradeForScore(score),
		SubScores:   sub,
		Rationale:   Explain(features),
		Provenance:  domain.Provenance{ScorerVersion: RuleScorerVersion},
		Features:    features.Vector(),
	}, nil
}

// contextAdjustment aplica el bono por especialidad y la penalizacion por cuidado
// intensivo. Requiere ambos contextos.
func (s *RuleScorer) contextAdjustment(in ScoreInput) float64 {
	if in.PatientContext == nil || in.CaregiverContext == nil {
		return 0
	}
	pc, cc := in.PatientContext, in.CaregiverContext
	adj := 0.0

	req := normalizeSet(pc.Specialties)
	if len(req) > 0 && cc.ExperienceYears >= s.cfg.SpecialtyMinExperience {
		for sp := range normalizeSet(cc.Specialties) {
			if _, ok := req[sp]; ok {
				adj += s.cfg.SpecialtyBonus
				break
			}
		}
	}

	if s.cfg.HighCareLevel > 0 && pc.CareLevel >= s.cfg.HighCareLevel && cc.ExperienceYears < s.cfg.HighCareMinExperience {
		adj -= s.cfg.HighCarePenalty
	}
	return adj
}
