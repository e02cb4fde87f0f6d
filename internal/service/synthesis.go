package service

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"care-match/internal/domain"
	"care-match/internal/model"
)

var synthSpecialties = []string{"dementia", "mobility", "diabetes", "palliative", "post-surgery", "pediatrics"}

var synthRegions = []string{"ar-ba-palermo", "ar-ba-belgrano", "ar-ba-caballito", "ar-cba-centro", "ar-cba-nueva", "uy-mvd-centro"}

// SynthesisConfig controla la generacion de datos sinteticos de entrenamiento.
type SynthesisConfig struct {
	Rows  int
	Seed  uint64
	Noise float64
}

// Synthesize genera filas (features, objetivo) donde el objetivo es el puntaje
// de reglas mas ruido gaussiano. Misma semilla, mismas filas.
func Synthesize(ctx context.Context, rule *RuleScorer, cfg SynthesisConfig) ([]model.Sample, error) {
	if cfg.Rows <= 0 {
		return nil, errors.New("rows must be positive")
	}
	if cfg.Noise < 0 {
		return nil, errors.New("noise must not be negative")
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	samples := make([]model.Sample, 0, cfg.Rows)
	for len(samples) < cfg.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := ScoreInput{
			Patient:          synthProfile(rng, domain.OwnerPatient),
			Caregiver:        synthProfile(rng, domain.OwnerCaregiver),
			PatientContext:   synthContext(rng, domain.OwnerPatient),
			CaregiverContext: synthContext(rng, domain.OwnerCaregiver),
		}
		res, err := rule.Score(ctx, in)
		if err != nil {
			return nil, err
		}
		target := clipScore(res.Score + rng.NormFloat64()*cfg.Noise)
		samples = append(samples, model.Sample{
			Features: BuildFeatures(in),
			Target:   math.Round(target*100) / 100,
		})
	}
	return samples, nil
}

func synthProfile(rng *rand.Rand, owner domain.OwnerType) *domain.PersonalityProfile {
	dim := func() float64 { return math.Round(rng.Float64()*1000) / 10 }
	return &domain.PersonalityProfile{
		OwnerType:    owner,
		OwnerID:      "synthetic",
		Empathy:      dim(),
		Activity:     dim(),
		Patience:     dim(),
		Independence: dim(),
	}
}

func synthContext(rng *rand.Rand, owner domain.OwnerType) *domain.CareContext {
	n := 1 + rng.IntN(3)
	picked := rng.Perm(len(synthSpecialties))[:n]
	specialties := make([]string, 0, n)
	for _, i := range picked {
		specialties = append(specialties, synthSpecialties[i])
	}
	return &domain.CareContext{
		OwnerType:       owner,
		OwnerID:         "synthetic",
		CareLevel:       1 + rng.IntN(7),
		Specialties:     specialties,
		Region:          synthRegions[rng.IntN(len(synthRegions))],
		ExperienceYears: math.Round(rng.Float64()*150) / 10,
		DiseaseCount:    rng.IntN(4),
	}
}
