package cluster

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Selection reports the quality of each candidate k
type Selection struct {
	Ks         []int     `json:"ks"`
	Inertia    []float64 `json:"inertia"`
	Silhouette []float64 `json:"silhouette"`
	BestK      int       `json:"best_k"`
}

// SelectK fits base for every k in [kMin, kMax] and picks the k with the
// highest silhouette. kMax is capped at n-1. ctx is checked before each fit.
func SelectK(ctx context.Context, X mat.Matrix, kMin, kMax int, base KMeans) (*Selection, error) {
	n, _ := X.Dims()
	if kMax > n-1 {
		kMax = n - 1
	}
	if kMin < 2 || kMin > kMax {
		return nil, fmt.Errorf("invalid k range [%d, %d] for %d points", kMin, kMax, n)
	}

	sel := &Selection{}
	bestScore := -2.0
	for k := kMin; k <= kMax; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		km := base
		km.K = k
		res, err := km.Fit(X)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		score, err := Silhouette(X, res.Labels)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		sel.Ks = append(sel.Ks, k)
		sel.Inertia = append(sel.Inertia, res.Inertia)
		sel.Silhouette = append(sel.Silhouette, score)
		if score > bestScore {
			bestScore = score
			sel.BestK = k
		}
	}
	return sel, nil
}
