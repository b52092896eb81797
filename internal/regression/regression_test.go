package regression

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitOLSTextbook(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := []float64{2, 4, 5, 4, 5}

	m, err := FitOLS(X, y)
	require.NoError(t, err)

	assert.InDelta(t, 2.2, m.Coefficients[0], 1e-9)
	assert.InDelta(t, 0.6, m.Coefficients[1], 1e-9)
	assert.InDelta(t, 0.938083, m.StdErrors[0], 1e-6)
	assert.InDelta(t, 0.282843, m.StdErrors[1], 1e-6)
	assert.InDelta(t, 2.121320, m.TStats[1], 1e-6)
	assert.InDelta(t, 0.124027, m.PValues[1], 1e-5)
	assert.InDelta(t, 0.6, m.R2, 1e-9)
	assert.InDelta(t, 0.466667, m.AdjR2, 1e-6)
	assert.Equal(t, 3, m.DF)

	pred := m.Predict(mat.NewDense(2, 1, []float64{0, 10}))
	assert.InDeltaSlice(t, []float64{2.2, 8.2}, pred, 1e-9)
}

func TestFitOLSRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 500
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*10, rng.NormFloat64()
		X.SetRow(i, []float64{a, b})
		y[i] = 1 + 2*a - 3*b + rng.NormFloat64()*0.1
	}

	m, err := FitOLS(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1, m.Coefficients[0], 0.05)
	assert.InDelta(t, 2, m.Coefficients[1], 0.01)
	assert.InDelta(t, -3, m.Coefficients[2], 0.02)
	assert.Greater(t, m.R2, 0.999)
	for _, p := range m.PValues {
		assert.Less(t, p, 1e-10)
	}
}

func TestFitOLSErrors(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})
	_, err := FitOLS(X, []float64{1, 2, 3, 5})
	assert.ErrorIs(t, err, ErrSingular)

	_, err = FitOLS(mat.NewDense(2, 1, []float64{1, 2}), []float64{1, 2})
	assert.Error(t, err, "too few rows")

	_, err = FitOLS(mat.NewDense(3, 1, []float64{1, 2, 3}), []float64{1, 2})
	assert.Error(t, err, "length mismatch")
}

func TestScores(t *testing.T) {
	truth := []float64{1, 2, 3, 4}
	pred := []float64{1, 2, 3, 6}

	s := Score(truth, pred)
	assert.InDelta(t, 1-4.0/5, s.R2, 1e-12)
	assert.InDelta(t, 1.0, s.RMSE, 1e-12)
	assert.InDelta(t, 0.5, s.MAE, 1e-12)

	assert.Equal(t, 0.0, R2([]float64{2, 2}, []float64{1, 3}))
	assert.True(t, math.IsNaN(RMSE(nil, nil)))
}

func stepData(n int, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b, c := rng.Float64(), rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b, c})
		if a > 0.5 {
			y[i] = 3
		}
		y[i] += 0.5*b + rng.NormFloat64()*0.05
	}
	return X, y
}

func TestGradientBoostingFitsStep(t *testing.T) {
	X, y := stepData(2000, 1)
	params := DefaultGBMParams()
	params.NEstimators = 60

	g := NewGradientBoosting(params)
	require.NoError(t, g.Fit(context.Background(), X, y))
	assert.Equal(t, 60, g.Trees())

	testX, testY := stepData(500, 2)
	scores := Score(testY, g.Predict(testX))
	assert.Greater(t, scores.R2, 0.9)

	imp := g.FeatureImportance()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[1], imp[2])
}

func TestGradientBoostingDeterministic(t *testing.T) {
	X, y := stepData(400, 5)
	params := DefaultGBMParams()
	params.NEstimators = 20

	a := NewGradientBoosting(params)
	b := NewGradientBoosting(params)
	require.NoError(t, a.Fit(context.Background(), X, y))
	require.NoError(t, b.Fit(context.Background(), X, y))
	assert.Equal(t, a.Predict(X), b.Predict(X))
}

func TestGradientBoostingBeatsLinearOnStep(t *testing.T) {
	X, y := stepData(1500, 7)
	ols, err := FitOLS(X, y)
	require.NoError(t, err)

	params := DefaultGBMParams()
	params.NEstimators = 50
	g := NewGradientBoosting(params)
	require.NoError(t, g.Fit(context.Background(), X, y))

	assert.Less(t, RMSE(y, g.Predict(X)), RMSE(y, ols.Predict(X)))
}

func TestGradientBoostingErrors(t *testing.T) {
	X, y := stepData(100, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewGradientBoosting(DefaultGBMParams()).Fit(ctx, X, y), context.Canceled)

	bad := DefaultGBMParams()
	bad.Bins = 300
	assert.Error(t, NewGradientBoosting(bad).Fit(context.Background(), X, y))

	assert.Error(t, NewGradientBoosting(DefaultGBMParams()).Fit(context.Background(), X, y[:10]))

	small := mat.NewDense(10, 1, nil)
	assert.Error(t, NewGradientBoosting(DefaultGBMParams()).Fit(context.Background(), small, make([]float64, 10)))
}

func TestBinThresholds(t *testing.T) {
	assert.Nil(t, binThresholds([]float64{2, 2, 2}, 8))
	assert.Equal(t, []float64{1.5, 2.5}, binThresholds([]float64{3, 1, 2, 1}, 8))

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	cuts := binThresholds(values, 4)
	assert.Equal(t, []float64{250, 500, 750}, cuts)
	assert.Equal(t, uint8(0), binOf(cuts, 250))
	assert.Equal(t, uint8(1), binOf(cuts, 251))
	assert.Equal(t, uint8(3), binOf(cuts, 999))
}
