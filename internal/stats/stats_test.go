package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDescribe(t *testing.T) {
	s := Describe([]float64{5, 1, 4, math.NaN(), 2, 3})

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)
	assert.InDelta(t, 1.2, s.P5, 1e-12)
	assert.InDelta(t, 4.8, s.P95, 1e-12)

	assert.Equal(t, Summary{}, Describe(nil))
	single := Describe([]float64{7})
	assert.Equal(t, 7.0, single.Mean)
	assert.Equal(t, 0.0, single.Std)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2.5)/3, CoefficientOfVariation([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.True(t, math.IsNaN(CoefficientOfVariation([]float64{1})))
	assert.True(t, math.IsNaN(CoefficientOfVariation([]float64{-1, 1})))
}

func TestMeanIgnoringNaN(t *testing.T) {
	assert.Equal(t, 2.0, MeanIgnoringNaN([]float64{1, math.NaN(), 3}))
	assert.True(t, math.IsNaN(MeanIgnoringNaN([]float64{math.NaN()})))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0.5, 1.5, 1.7, 3.9, 4, -1, math.NaN()}, 4, 0, 4)
	require.Len(t, bins, 4)

	counts := make([]int, len(bins))
	for i, b := range bins {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{1, 2, 0, 1}, counts)
	assert.Equal(t, 1.0, bins[1].Low)
	assert.Equal(t, 2.0, bins[1].High)

	assert.Nil(t, Histogram([]float64{1}, 4, 2, 2))
	empty := Histogram(nil, 2, 0, 1)
	require.Len(t, empty, 2)
	assert.Zero(t, empty[0].Count)
}

func TestWilson(t *testing.T) {
	tests := []struct {
		name          string
		successes, n  int
		wantLow, want float64
		wantHigh      float64
	}{
		{name: "half", successes: 5, n: 10, wantLow: 0.236593, want: 0.5, wantHigh: 0.763407},
		{name: "none", successes: 0, n: 10, wantLow: 0, want: 0, wantHigh: 0.277533},
		{name: "all", successes: 10, n: 10, wantLow: 0.722467, want: 1, wantHigh: 1},
		{name: "pole", successes: 81, n: 263, wantLow: 0.255289, want: 81.0 / 263, wantHigh: 0.366210},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := Wilson(tt.successes, tt.n, 0.95)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, iv.Estimate, 1e-9)
			assert.InDelta(t, tt.wantLow, iv.Low, 1e-5)
			assert.InDelta(t, tt.wantHigh, iv.High, 1e-5)
			assert.LessOrEqual(t, iv.Low, iv.Estimate)
			assert.GreaterOrEqual(t, iv.High, iv.Estimate)
		})
	}
}

func TestWilsonErrors(t *testing.T) {
	_, err := Wilson(0, 0, 0.95)
	assert.Error(t, err)
	_, err = Wilson(3, 2, 0.95)
	assert.Error(t, err)
	_, err = Wilson(1, 2, 1)
	assert.Error(t, err)
}

func TestChiSquareIndependence(t *testing.T) {
	res, err := ChiSquareIndependence([][]float64{{10, 20}, {30, 40}})
	require.NoError(t, err)

	assert.InDelta(t, 0.793651, res.Statistic, 1e-6)
	assert.Equal(t, 1, res.DF)
	assert.InDelta(t, 0.372998, res.PValue, 1e-5)
	assert.InDelta(t, 0.089087, res.CramersV, 1e-6)
	assert.Equal(t, 100.0, res.N)
	assert.InDelta(t, 12.0, res.Expected[0][0], 1e-12)
	assert.Zero(t, res.LowExpected)
}

func TestChiSquareStrongAssociation(t *testing.T) {
	res, err := ChiSquareIndependence([][]float64{{50, 0}, {0, 50}, {1, 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DF)
	assert.Less(t, res.PValue, 1e-10)
	assert.Greater(t, res.CramersV, 0.9)
	assert.Equal(t, 2, res.LowExpected)
}

func TestChiSquareErrors(t *testing.T) {
	_, err := ChiSquareIndependence([][]float64{{1, 2}})
	assert.Error(t, err)

	_, err = ChiSquareIndependence([][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	_, err = ChiSquareIndependence([][]float64{{0, 0}, {3, 4}})
	assert.ErrorIs(t, err, ErrDegenerateTable)

	_, err = ChiSquareIndependence([][]float64{{-1, 2}, {3, 4}})
	assert.Error(t, err)
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	train2, test2, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, _, err = TrainTestSplit(1, 0.5, 1)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 0, 1)
	assert.Error(t, err)
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})

	var s StandardScaler
	Z, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")
	assert.InDelta(t, -1.5/math.Sqrt(1.25), Z.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, Z.At(2, 1))

	back := s.InverseTransformRow(mat.Row(nil, 3, Z))
	assert.InDeltaSlice(t, []float64{4, 5}, back, 1e-12)

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}
