// Package cluster groups drivers by racing style with k-means.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans configures Lloyd's algorithm with k-means++ seeding
type KMeans struct {
	K       int
	NInit   int
	MaxIter int
	Tol     float64
	Seed    int64
}

// NewKMeans returns a KMeans for k clusters with the default restarts and tolerances
func NewKMeans(k int, seed int64) KMeans {
	return KMeans{K: k, NInit: 10, MaxIter: 300, Tol: 1e-4, Seed: seed}
}

// Result is the best of the KMeans restarts
type Result struct {
	Labels     []int
	Centroids  *mat.Dense
	Inertia    float64
	Iterations int
}

// Sizes returns the number of points per cluster
func (r *Result) Sizes() []int {
	k, _ := r.Centroids.Dims()
	sizes := make([]int, k)
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Fit clusters the rows of X, keeping the restart with the lowest inertia
func (km KMeans) Fit(X mat.Matrix) (*Result, error) {
	n, _ := X.Dims()
	if km.K < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", km.K)
	}
	if km.K > n {
		return nil, fmt.Errorf("cannot form %d clusters from %d points", km.K, n)
	}

	points := rows(X)
	rng := rand.New(rand.NewSource(km.Seed))
	restarts := km.NInit
	if restarts < 1 {
		restarts = 1
	}

	var best *Result
	for i := 0; i < restarts; i++ {
		res := km.run(points, rng)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func (km KMeans) run(points [][]float64, rng *rand.Rand) *Result {
	n, dim := len(points), len(points[0])
	centroids := seedPlusPlus(points, km.K, rng)
	labels := make([]int, n)

	iter := 0
	for iter < km.MaxIter {
		iter++
		assign(points, centroids, labels)

		next := make([][]float64, km.K)
		counts := make([]int, km.K)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// reseed an empty cluster at the point farthest from its centroid
				far := farthestPoint(points, centroids, labels)
				copy(next[c], points[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range next {
			shift += squaredDistance(next[c], centroids[c])
		}
		centroids = next
		if shift <= km.Tol {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	flat := make([]float64, 0, km.K*dim)
	for _, c := range centroids {
		flat = append(flat, c...)
	}
	return &Result{
		Labels:     labels,
		Centroids:  mat.NewDense(km.K, dim, flat),
		Inertia:    inertia,
		Iterations: iter,
	}
}

// seedPlusPlus picks k initial centroids, each new one sampled with
// probability proportional to its squared distance from the nearest chosen centroid
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = squaredDistance(p, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}
		c := append([]float64(nil), points[next]...)
		centroids = append(centroids, c)
		for i, p := range points {
			dist[i] = math.Min(dist[i], squaredDistance(p, c))
		}
	}
	return centroids
}

// assign labels every point with its nearest centroid and returns the inertia
func assign(points, centroids [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := squaredDistance(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

func farthestPoint(points, centroids [][]float64, labels []int) int {
	far, farDist := 0, -1.0
	for i, p := range points {
		if d := squaredDistance(p, centroids[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func rows(X mat.Matrix) [][]float64 {
	n, _ := X.Dims()
	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, X)
	}
	return out
}
