package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Silhouette returns the mean silhouette coefficient of a labelling.
// Points in singleton clusters score 0.
func Silhouette(X mat.Matrix, labels []int) (float64, error) {
	points := rows(X)
	n := len(points)
	if n != len(labels) {
		return 0, fmt.Errorf("got %d labels for %d points", len(labels), n)
	}

	k := 0
	for _, l := range labels {
		if l < 0 {
			return 0, fmt.Errorf("negative label %d", l)
		}
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	nonEmpty := 0
	for _, s := range sizes {
		if s > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 || nonEmpty >= n {
		return 0, fmt.Errorf("silhouette needs between 2 and %d clusters, got %d", n-1, nonEmpty)
	}

	total := 0.0
	sums := make([]float64, k)
	for i, p := range points {
		for c := range sums {
			sums[c] = 0
		}
		for j, q := range points {
			if i != j {
				sums[labels[j]] += floats.Distance(p, q, 2)
			}
		}

		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, s := range sums {
			if c != own && sizes[c] > 0 {
				b = math.Min(b, s/float64(sizes[c]))
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n), nil
}
