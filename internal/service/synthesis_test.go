package service

import (
	"context"
	"testing"

	"care-match/internal/model"
)

func TestSynthesizeDeterministic(t *testing.T) {
	rule := NewRuleScorer(DefaultRuleScorerConfig())
	cfg := SynthesisConfig{Rows: 50, Seed: 42, Noise: 5}

	a, err := Synthesize(context.Background(), rule, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Synthesize(context.Background(), rule, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 50 || len(b) != 50 {
		t.Fatalf("expected 50 rows, got %d/%d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs for same seed", i)
		}
		if a[i].Target < 0 || a[i].Target > 100 {
			t.Fatalf("row %d target out of range: %v", i, a[i].Target)
		}
	}

	c, err := Synthesize(context.Background(), rule, SynthesisConfig{Rows: 50, Seed: 7, Noise: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := 0
	for i := range a {
		if a[i] == c[i] {
			same++
		}
	}
	if same == len(a) {
		t.Fatalf("different seeds produced identical rows")
	}
}

func TestSynthesizeValidation(t *testing.T) {
	rule := NewRuleScorer(DefaultRuleScorerConfig())
	if _, err := Synthesize(context.Background(), rule, SynthesisConfig{Rows: 0}); err == nil {
		t.Fatalf("expected error for zero rows")
	}
	if _, err := Synthesize(context.Background(), rule, SynthesisConfig{Rows: 1, Noise: -1}); err == nil {
		t.Fatalf("expected error for negative noise")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Synthesize(ctx, rule, SynthesisConfig{Rows: 10}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestTrainOnSynthesizedRows(t *testing.T) {
	rule := NewRuleScorer(DefaultRuleScorerConfig())
	samples, err := Synthesize(context.Background(), rule, SynthesisConfig{Rows: 400, Seed: 1, Noise: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := model.FitLinear(samples, 0.01, "synthetic-test")
	if err != nil {
		t.Fatalf("unexpected fit error: %v", err)
	}
	reg, err := artifact.Regressor()
	if err != nil {
		t.Fatalf("trained artifact must be loadable: %v", err)
	}
	mse, err := model.MeanSquaredError(reg, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mean float64
	for _, s := range samples {
		mean += s.Target
	}
	mean /= float64(len(samples))
	var variance float64
	for _, s := range samples {
		variance += (s.Target - mean) * (s.Target - mean)
	}
	variance /= float64(len(samples))
	if mse >= variance {
		t.Fatalf("linear fit should beat the mean predictor: mse %v variance %v", mse, variance)
	}
}

func TestSynthesizeCoversCareLevels(t *testing.T) {
	rule := NewRuleScorer(DefaultRuleScorerConfig())
	samples, err := Synthesize(context.Background(), rule, SynthesisConfig{Rows: 500, Seed: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[float64]bool)
	for _, s := range samples {
		level := s.Features.PatientCareLevel
		if level < 1 || level > 7 {
			t.Fatalf("care level out of range: %v", level)
		}
		seen[level] = true
	}
	for level := 1.0; level <= 7; level++ {
		if !seen[level] {
			t.Fatalf("care level %v never generated", level)
		}
	}
}
