package regression

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// GBMParams configures GradientBoosting
type GBMParams struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	Subsample      float64
	Lambda         float64
	Bins           int
	Seed           int64
}

// DefaultGBMParams returns the default boosting parameters
func DefaultGBMParams() GBMParams {
	return GBMParams{
		NEstimators:    200,
		LearningRate:   0.1,
		MaxDepth:       4,
		MinSamplesLeaf: 20,
		Subsample:      0.8,
		Lambda:         1.0,
		Bins:           64,
		Seed:           42,
	}
}

func (p GBMParams) validate() error {
	switch {
	case p.NEstimators <= 0:
		return fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", p.LearningRate)
	case p.MaxDepth <= 0:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.MinSamplesLeaf <= 0:
		return fmt.Errorf("min_samples_leaf must be positive, got %d", p.MinSamplesLeaf)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	case p.Lambda < 0:
		return fmt.Errorf("lambda must be non-negative, got %v", p.Lambda)
	case p.Bins < 2 || p.Bins > 256:
		return fmt.Errorf("bins must be in [2, 256], got %d", p.Bins)
	}
	return nil
}

// GradientBoosting is a squared-loss gradient boosted ensemble of
// depth-limited regression trees grown on histogram-binned features.
// Splits maximise the L2-regularised gain
//
//	GL²/(nL+λ) + GR²/(nR+λ) − G²/(n+λ)
//
// where G sums the residuals of a node.
type GradientBoosting struct {
	Params GBMParams

	base       float64
	trees      []*tree
	thresholds [][]float64
	importance []float64
}

// NewGradientBoosting creates an unfitted model
func NewGradientBoosting(params GBMParams) *GradientBoosting {
	return &GradientBoosting{Params: params}
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	bin       uint8
	threshold float64
	left      int
	right     int
}

type tree struct {
	nodes []node
}

func (t *tree) predictBinned(bins [][]uint8, row int) float64 {
	n := &t.nodes[0]
	for !n.leaf {
		if bins[n.feature][row] <= n.bin {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n.value
}

func (t *tree) predict(x []float64) float64 {
	n := &t.nodes[0]
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n.value
}

// Fit grows Params.NEstimators trees on (X, y). It returns ctx.Err() if the
// context is cancelled between trees.
func (g *GradientBoosting) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	if err := g.Params.validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n != len(y) {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}
	if n < 2*g.Params.MinSamplesLeaf {
		return fmt.Errorf("need at least %d rows, got %d", 2*g.Params.MinSamplesLeaf, n)
	}

	g.thresholds = make([][]float64, p)
	bins := make([][]uint8, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		g.thresholds[j] = binThresholds(col, g.Params.Bins)
		bins[j] = make([]uint8, n)
		for i, v := range col {
			bins[j][i] = binOf(g.thresholds[j], v)
		}
	}

	g.base = 0
	for _, v := range y {
		g.base += v
	}
	g.base /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.base
	}
	residual := make([]float64, n)
	g.importance = make([]float64, p)
	g.trees = g.trees[:0]

	rng := rand.New(rand.NewSource(g.Params.Seed))
	b := &builder{params: g.Params, bins: bins, residual: residual, importance: g.importance, nBins: maxBins(g.thresholds)}
	rows := make([]int, 0, n)

	for m := 0; m < g.Params.NEstimators; m++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		rows = rows[:0]
		for i := 0; i < n; i++ {
			if g.Params.Subsample >= 1 || rng.Float64() < g.Params.Subsample {
				rows = append(rows, i)
			}
		}
		if len(rows) < 2*g.Params.MinSamplesLeaf {
			continue
		}

		t := b.build(rows, g.thresholds)
		g.trees = append(g.trees, t)
		for i := 0; i < n; i++ {
			pred[i] += g.Params.LearningRate * t.predictBinned(bins, i)
		}
	}

	total := 0.0
	for _, v := range g.importance {
		total += v
	}
	if total > 0 {
		for j := range g.importance {
			g.importance[j] /= total
		}
	}
	return nil
}

// Predict returns the model output for every row of X
func (g *GradientBoosting) Predict(X mat.Matrix) []float64 {
	n, p := X.Dims()
	out := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		v := g.base
		for _, t := range g.trees {
			v += g.Params.LearningRate * t.predict(row)
		}
		out[i] = v
	}
	return out
}

// FeatureImportance returns the total split gain per feature, normalised to sum to 1
func (g *GradientBoosting) FeatureImportance() []float64 {
	return append([]float64(nil), g.importance...)
}

// Trees returns the number of fitted trees
func (g *GradientBoosting) Trees() int {
	return len(g.trees)
}

// binThresholds returns ascending cut points; value v falls in the first
// bin whose cut point is >= v, or the last bin when v exceeds every cut.
func binThresholds(values []float64, maxBinCount int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) <= 1 {
		return nil
	}

	if len(unique) <= maxBinCount {
		cuts := make([]float64, len(unique)-1)
		for i := range cuts {
			cuts[i] = (unique[i] + unique[i+1]) / 2
		}
		return cuts
	}

	cuts := make([]float64, 0, maxBinCount-1)
	for k := 1; k < maxBinCount; k++ {
		v := sorted[k*len(sorted)/maxBinCount]
		if v == sorted[len(sorted)-1] {
			break
		}
		if len(cuts) == 0 || v > cuts[len(cuts)-1] {
			cuts = append(cuts, v)
		}
	}
	return cuts
}

func binOf(cuts []float64, v float64) uint8 {
	return uint8(sort.SearchFloat64s(cuts, v))
}

func maxBins(thresholds [][]float64) int {
	most := 1
	for _, t := range thresholds {
		if len(t)+1 > most {
			most = len(t) + 1
		}
	}
	return most
}

type builder struct {
	params     GBMParams
	bins       [][]uint8
	residual   []float64
	importance []float64
	nBins      int

	sums   []float64
	counts []int
}

type split struct {
	gain    float64
	feature int
	bin     uint8
}

func (b *builder) build(rows []int, thresholds [][]float64) *tree {
	t := &tree{}
	if b.sums == nil {
		b.sums = make([]float64, b.nBins)
		b.counts = make([]int, b.nBins)
	}
	b.grow(t, rows, 0, thresholds)
	return t
}

func (b *builder) grow(t *tree, rows []int, depth int, thresholds [][]float64) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{})

	total := 0.0
	for _, r := range rows {
		total += b.residual[r]
	}
	leafValue := total / (float64(len(rows)) + b.params.Lambda)

	if depth >= b.params.MaxDepth || len(rows) < 2*b.params.MinSamplesLeaf {
		t.nodes[idx] = node{leaf: true, value: leafValue}
		return idx
	}

	best := b.bestSplit(rows, total)
	if best.gain <= 1e-12 {
		t.nodes[idx] = node{leaf: true, value: leafValue}
		return idx
	}
	b.importance[best.feature] += best.gain

	// partition rows in place: left bins first
	featureBins := b.bins[best.feature]
	i, j := 0, len(rows)-1
	for i <= j {
		if featureBins[rows[i]] <= best.bin {
			i++
		} else {
			rows[i], rows[j] = rows[j], rows[i]
			j--
		}
	}

	left := b.grow(t, rows[:i], depth+1, thresholds)
	right := b.grow(t, rows[i:], depth+1, thresholds)
	t.nodes[idx] = node{
		feature:   best.feature,
		bin:       best.bin,
		threshold: thresholds[best.feature][best.bin],
		left:      left,
		right:     right,
	}
	return idx
}

func (b *builder) bestSplit(rows []int, total float64) split {
	best := split{gain: math.Inf(-1)}
	n := float64(len(rows))
	lambda := b.params.Lambda
	parent := total * total / (n + lambda)
	minLeaf := b.params.MinSamplesLeaf

	for f, featureBins := range b.bins {
		for k := range b.sums {
			b.sums[k] = 0
			b.counts[k] = 0
		}
		for _, r := range rows {
			bin := featureBins[r]
			b.sums[bin] += b.residual[r]
			b.counts[bin]++
		}

		var sumL float64
		var nL int
		// the last bin has no cut point, so it can only be on the right
		for k := 0; k < b.nBins-1; k++ {
			sumL += b.sums[k]
			nL += b.counts[k]
			nR := len(rows) - nL
			if nL < minLeaf {
				continue
			}
			if nR < minLeaf {
				break
			}
			sumR := total - sumL
			gain := sumL*sumL/(float64(nL)+lambda) + sumR*sumR/(float64(nR)+lambda) - parent
			if gain > best.gain {
				best = split{gain: gain, feature: f, bin: uint8(k)}
			}
		}
	}
	return best
}
