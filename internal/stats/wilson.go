package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a point estimate with confidence bounds
type Interval struct {
	Estimate float64 `json:"estimate"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
}

// Wilson returns the Wilson score interval for a binomial proportion
func Wilson(successes, n int, confidence float64) (Interval, error) {
	if n <= 0 {
		return Interval{}, fmt.Errorf("wilson interval needs at least one trial, got %d", n)
	}
	if successes < 0 || successes > n {
		return Interval{}, fmt.Errorf("successes %d outside [0, %d]", successes, n)
	}
	if confidence <= 0 || confidence >= 1 {
		return Interval{}, fmt.Errorf("confidence %.3f outside (0, 1)", confidence)
	}

	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	nf := float64(n)
	p := float64(successes) / nf
	z2 := z * z

	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	return Interval{
		Estimate: p,
		Low:      math.Max(0, center-half),
		High:     math.Min(1, center+half),
	}, nil
}
