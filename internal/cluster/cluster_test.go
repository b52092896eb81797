package cluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var blobCenters = [][]float64{{0, 0}, {10, 10}, {-10, 10}}

// blobs returns perBlob points around each of blobCenters, grouped by blob
func blobs(perBlob int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(perBlob*len(blobCenters), 2, nil)
	for b, c := range blobCenters {
		for i := 0; i < perBlob; i++ {
			X.SetRow(b*perBlob+i, []float64{c[0] + rng.NormFloat64()*0.5, c[1] + rng.NormFloat64()*0.5})
		}
	}
	return X
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	X := blobs(30, 1)

	res, err := NewKMeans(3, 7).Fit(X)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 30, 30}, res.Sizes())
	for b := 0; b < 3; b++ {
		label := res.Labels[b*30]
		for i := 0; i < 30; i++ {
			assert.Equal(t, label, res.Labels[b*30+i], "blob %d point %d", b, i)
		}
	}
	assert.Less(t, res.Inertia, 90*0.5*2*1.5)
	assert.Greater(t, res.Iterations, 0)

	r, c := res.Centroids.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
}

func TestKMeansDeterministic(t *testing.T) {
	X := blobs(20, 2)

	a, err := NewKMeans(4, 11).Fit(X)
	require.NoError(t, err)
	b, err := NewKMeans(4, 11).Fit(X)
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Inertia, b.Inertia)
}

func TestKMeansErrors(t *testing.T) {
	X := blobs(1, 1)
	_, err := NewKMeans(4, 1).Fit(X)
	assert.Error(t, err)
	_, err = NewKMeans(0, 1).Fit(X)
	assert.Error(t, err)
}

func TestKMeansSingleCluster(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 6})
	res, err := NewKMeans(1, 1).Fit(X)
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.Centroids.At(0, 0))
	assert.InDelta(t, 4+1+9, res.Inertia, 1e-12)
}

func TestSilhouette(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})

	score, err := Silhouette(X, []int{0, 0, 1, 1})
	require.NoError(t, err)
	// a = 1 for every point; b is 10.5 for the outer points and 9.5 for the inner ones
	want := ((9.5/10.5)*2 + (8.5/9.5)*2) / 4
	assert.InDelta(t, want, score, 1e-12)

	bad, err := Silhouette(X, []int{0, 1, 0, 1})
	require.NoError(t, err)
	assert.Less(t, bad, 0.0)

	_, err = Silhouette(X, []int{0, 0, 0, 0})
	assert.Error(t, err)
	_, err = Silhouette(X, []int{0, 1})
	assert.Error(t, err)
}

func TestSilhouetteSingleton(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 10})
	score, err := Silhouette(X, []int{0, 0, 1})
	require.NoError(t, err)
	// the singleton scores 0; the others score (b - a) / b
	want := ((9.0/10.0)*1 + (8.0/9.0)*1) / 3
	assert.InDelta(t, want, score, 1e-12)
}

func TestSelectK(t *testing.T) {
	X := blobs(25, 3)

	sel, err := SelectK(context.Background(), X, 2, 6, NewKMeans(0, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5, 6}, sel.Ks)
	assert.Equal(t, 3, sel.BestK)
	assert.Len(t, sel.Silhouette, 5)
	assert.Less(t, sel.Inertia[1], sel.Inertia[0])

	_, err = SelectK(context.Background(), X, 1, 3, NewKMeans(0, 5))
	assert.Error(t, err)

	small := mat.NewDense(3, 1, []float64{0, 1, 2})
	sel, err = SelectK(context.Background(), small, 2, 8, NewKMeans(0, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, sel.Ks, "k is capped at n-1")
}

func TestSelectKCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SelectK(ctx, blobs(25, 3), 2, 6, NewKMeans(0, 5))
	assert.ErrorIs(t, err, context.Canceled)
}
