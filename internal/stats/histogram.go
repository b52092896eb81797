package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bin is one histogram bucket covering [Low, High)
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Histogram counts xs into bins equal-width buckets spanning [lo, hi).
// Values outside the range are ignored.
func Histogram(xs []float64, bins int, lo, hi float64) []Bin {
	if bins <= 0 || !(hi > lo) {
		return nil
	}

	inRange := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x >= lo && x < hi {
			inRange = append(inRange, x)
		}
	}
	sort.Float64s(inRange)

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	counts := make([]float64, bins)
	if len(inRange) > 0 {
		counts = stat.Histogram(counts, dividers, inRange, nil)
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Low: dividers[i], High: dividers[i+1], Count: int(counts[i])}
	}
	return out
}
