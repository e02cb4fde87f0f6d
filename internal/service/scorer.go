package service

import (
	"context"
	"math"

	"care-match/internal/domain"
)

// Versiones de scorer registradas en la procedencia de cada resultado.
const (
	RuleScorerVersion    = "rule-v1"
	LearnedScorerVersion = "learned-v1"
)

// Pesos por eje. El orden empathy > patience > activity > independence es intencional.
const (
	weightEmpathy      = 0.40
	weightPatience     = 0.30
	weightActivity     = 0.20
	weightIndependence = 0.10
)

// Ajuste por interaccion de empatia.
const (
	empathyLowThreshold  = 50.0
	empathyLowPenalty    = 10.0
	empathyHighThreshold = 80.0
	empathyHighBonus     = 5.0
)

// ScoreInput agrupa lo necesario para puntuar un par.
// Los contextos son opcionales.
type ScoreInput struct {
	Patient          *domain.PersonalityProfile
	Caregiver        *domain.PersonalityProfile
	PatientContext   *domain.CareContext
	CaregiverContext *domain.CareContext
}

// Scorer es una estrategia de puntuacion versionada.
type Scorer interface {
	Version() string
	Score(ctx context.Context, in ScoreInput) (domain.CompatibilityResult, error)
}

// validate verifica presencia y rango de ambos perfiles.
func (in ScoreInput) validate() error {
	if in.Patient == nil {
		return domain.NewError(domain.CodeProfileMissing, "patient profile missing")
	}
	if in.Caregiver == nil {
		return domain.NewError(domain.CodeProfileMissing, "caregiver profile missing")
	}
	if err := in.Patient.Validate(); err != nil {
		return err
	}
	return in.Caregiver.Validate()
}

// Penalty es la penalizacion convexa por tramos aplicada a la diferencia de un eje.
func Penalty(d float64) float64 {
	d = math.Abs(d)
	switch {
	case d < 20:
		return d
	case d < 40:
		return 20 + (d-20)*1.5
	default:
		return 50 + (d-40)*2.0
	}
}

// dimensionScore convierte una diferencia en un sub-puntaje en [0,100].
func dimensionScore(d float64) float64 {
	return math.Max(0, 100-Penalty(d))
}

// subScoresFromDiffs aplica dimensionScore a las diferencias en orden empathy, activity, patience, independence.
func subScoresFromDiffs(diffs [4]float64) domain.SubScores {
	return domain.SubScores{
		Empathy:      dimensionScore(diffs[0]),
		Activity:     dimensionScore(diffs[1]),
		Patience:     dimensionScore(diffs[2]),
		Independence: dimensionScore(diffs[3]),
	}
}

func weightedTotal(s domain.SubScores) float64 {
	return s.Empathy*weightEmpathy +
		s.Patience*weightPatience +
		s.Activity*weightActivity +
		s.Independence*weightIndependence
}

// empathyAdjustment devuelve el ajuste por interaccion segun el sub-puntaje de empatia.
func empathyAdjustment(empathy float64) float64 {
	switch {
	case empathy < empathyLowThreshold:
		return -empathyLowPenalty
	case empathy > empathyHighThreshold:
		return empathyHighBonus
	default:
		return 0
	}
}

func clipScore(v float64) float64 {
	if v != v {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// roundScore redondea a dos decimales, la precision persistida.
func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func profileDiffs(p, c *domain.PersonalityProfile) [4]float64 {
	return [4]float64{
		math.Abs(p.Empathy - c.Empathy),
		math.Abs(p.Activity - c.Activity),
		math.Abs(p.Patience - c.Patience),
		math.Abs(p.Independence - c.Independence),
	}
}
