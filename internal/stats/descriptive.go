// Package stats provides the descriptive statistics, interval estimates and
// hypothesis tests used by the analyses.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a sample
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P5     float64 `json:"p5"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Describe summarises xs. NaN values are ignored; an empty sample yields a zero Summary.
func Describe(xs []float64) Summary {
	sorted := sortedFinite(xs)
	if len(sorted) == 0 {
		return Summary{}
	}

	s := Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P5:     quantileSorted(sorted, 0.05),
		Median: quantileSorted(sorted, 0.5),
		P95:    quantileSorted(sorted, 0.95),
	}
	if len(sorted) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
	}
	return s
}

// Median returns the midpoint of xs, averaging the two central values for
// even-length samples. It returns NaN for an empty sample.
func Median(xs []float64) float64 {
	sorted := sortedFinite(xs)
	if len(sorted) == 0 {
		return math.NaN()
	}
	return quantileSorted(sorted, 0.5)
}

// CoefficientOfVariation returns std/mean, or NaN when it is undefined
func CoefficientOfVariation(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if mean == 0 {
		return math.NaN()
	}
	return std / mean
}

// MeanIgnoringNaN returns the mean of the finite values of xs, NaN when there are none
func MeanIgnoringNaN(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// quantileSorted interpolates linearly between order statistics
func quantileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func sortedFinite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}
