package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	KindLinear       = "linear"
	KindTreeEnsemble = "tree_ensemble"
)

// Artifact es el formato JSON en disco de un modelo entrenado.
type Artifact struct {
	Kind         string    `json:"kind"`
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Intercept    float64   `json:"intercept,omitempty"`
	Weights      []float64 `json:"weights,omitempty"`
	BaseScore    float64   `json:"base_score,omitempty"`
	LearningRate float64   `json:"learning_rate,omitempty"`
	Trees        []Tree    `json:"trees,omitempty"`
}

// CheckFeatureNames exige que el artefacto use exactamente FeatureOrder.
func (a Artifact) CheckFeatureNames() error {
	if len(a.FeatureNames) != len(FeatureOrder) {
		return fmt.Errorf("%w: expected %d feature names, got %d", ErrInvalidArtifact, len(FeatureOrder), len(a.FeatureNames))
	}
	for i, name := range FeatureOrder {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrInvalidArtifact, i, a.FeatureNames[i], name)
		}
	}
	return nil
}

// Regressor construye el modelo descrito por el artefacto.
func (a Artifact) Regressor() (Regressor, error) {
	if err := a.CheckFeatureNames(); err != nil {
		return nil, err
	}
	version := strings.TrimSpace(a.Version)
	if version == "" {
		version = "learned-v1"
	}
	switch a.Kind {
	case KindLinear:
		if len(a.Weights) != FeatureCount {
			return nil, fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidArtifact, FeatureCount, len(a.Weights))
		}
		weights := make([]float64, len(a.Weights))
		copy(weights, a.Weights)
		return &LinearModel{ModelVersion: version, Intercept: a.Intercept, Weights: weights}, nil
	case KindTreeEnsemble:
		if len(a.Trees) == 0 {
			return nil, fmt.Errorf("%w: ensemble without trees", ErrInvalidArtifact)
		}
		return &TreeEnsemble{
			ModelVersion: version,
			NumFeatures:  FeatureCount,
			BaseScore:    a.BaseScore,
			LearningRate: a.LearningRate,
			Trees:        a.Trees,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArtifact, a.Kind)
	}
}

// Decode lee un artefacto JSON y construye su modelo.
func Decode(r io.Reader) (Regressor, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return a.Regressor()
}

// LoadFile abre y decodifica un artefacto desde disco.
func LoadFile(path string) (Regressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode escribe el artefacto como JSON indentado.
func Encode(w io.Writer, a Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
