package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardises columns to zero mean and unit variance
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Fit learns per-column mean and population standard deviation.
// Constant columns get scale 1 so they transform to zero.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 {
		return fmt.Errorf("cannot fit scaler on an empty matrix")
	}

	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.MeanVariance(col, nil)
		if rows > 1 {
			variance *= float64(rows-1) / float64(rows)
		} else {
			variance = 0
		}
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 || math.IsNaN(s.Scale[j]) {
			s.Scale[j] = 1
		}
	}
	return nil
}

// Transform returns a standardised copy of X
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != len(s.Mean) {
		return nil, fmt.Errorf("scaler fitted on %d columns, got %d", len(s.Mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return out, nil
}

// FitTransform fits the scaler on X and returns the standardised copy
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransformRow maps a standardised row back to original units
func (s *StandardScaler) InverseTransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v*s.Scale[j] + s.Mean[j]
	}
	return out
}
