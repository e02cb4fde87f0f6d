package model

import (
	"errors"
	"fmt"
)

// Regressor predice un puntaje de compatibilidad a partir de un vector ordenado.
type Regressor interface {
	Version() string
	Predict(features []float64) (float64, error)
}

var (
	ErrFeatureMismatch = errors.New("feature vector length mismatch")
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// LinearModel es una regresion lineal: intercept + w·x.
type LinearModel struct {
	ModelVersion string
	Intercept    float64
	Weights      []float64
}

func (m *LinearModel) Version() string { return m.ModelVersion }

func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrFeatureMismatch, len(m.Weights), len(features))
	}
	out := m.Intercept
	for i, w := range m.Weights {
		out += w * features[i]
	}
	return out, nil
}

// TreeNode es un nodo de arbol de regresion serializado en forma plana.
// Un nodo es hoja cuando Feature < 0.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree es un arbol de regresion; el nodo 0 es la raiz.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t Tree) eval(features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("%w: node index %d out of range", ErrInvalidArtifact, idx)
		}
		n := t.Nodes[idx]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if n.Feature >= len(features) {
			return 0, fmt.Errorf("%w: feature index %d", ErrFeatureMismatch, n.Feature)
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0, fmt.Errorf("%w: cycle in tree", ErrInvalidArtifact)
}

// TreeEnsemble suma arboles de gradient boosting: base + lr·Σ arbol(x).
type TreeEnsemble struct {
	ModelVersion string
	NumFeatures  int
	BaseScore    float64
	LearningRate float64
	Trees        []Tree
}

func (m *TreeEnsemble) Version() string { return m.ModelVersion }

func (m *TreeEnsemble) Predict(features []float64) (float64, error) {
	if len(features) != m.NumFeatures {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrFeatureMismatch, m.NumFeatures, len(features))
	}
	lr := m.LearningRate
	if lr == 0 {
		lr = 1
	}
	out := m.BaseScore
	for i, t := range m.Trees {
		v, err := t.eval(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		out += lr * v
	}
	return out, nil
}
