package model

import (
	"errors"
	"fmt"
	"math"
)

var ErrSingularSystem = errors.New("training system is singular")

// Sample es una fila de entrenamiento.
type Sample struct {
	Features Features `json:"features"`
	Target   float64  `json:"target"`
}

// FitLinear ajusta una regresion ridge por ecuaciones normales.
// El intercept no se regulariza.
func FitLinear(samples []Sample, lambda float64, version string) (Artifact, error) {
	if len(samples) == 0 {
		return Artifact{}, errors.New("no training samples")
	}
	if lambda < 0 {
		return Artifact{}, fmt.Errorf("lambda must be >= 0, got %v", lambda)
	}

	n := FeatureCount + 1
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
	}
	b := make([]float64, n)

	row := make([]float64, n)
	for _, s := range samples {
		row[0] = 1
		copy(row[1:], s.Features.Vector())
		for i := 0; i < n; i++ {
			b[i] += row[i] * s.Target
			for j := 0; j < n; j++ {
				a[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 1; i < n; i++ {
		a[i][i] += lambda
	}

	coef, err := solve(a, b)
	if err != nil {
		return Artifact{}, err
	}

	names := make([]string, len(FeatureOrder))
	copy(names, FeatureOrder)
	return Artifact{
		Kind:         KindLinear,
		Version:      version,
		FeatureNames: names,
		Intercept:    coef[0],
		Weights:      coef[1:],
	}, nil
}

// solve resuelve a·x = b por eliminacion gaussiana con pivoteo parcial.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, ErrSingularSystem
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			if f == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

// MeanSquaredError evalua un modelo sobre un conjunto de muestras.
func MeanSquaredError(r Regressor, samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, errors.New("no samples")
	}
	var total float64
	for _, s := range samples {
		pred, err := r.Predict(s.Features.Vector())
		if err != nil {
			return 0, err
		}
		d := pred - s.Target
		total += d * d
	}
	return total / float64(len(samples)), nil
}
