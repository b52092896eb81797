// Package regression fits the lap time models: ordinary least squares and
// gradient boosted regression trees.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrSingular is returned when the design matrix is rank deficient
var ErrSingular = errors.New("design matrix is singular")

// OLS is a fitted linear model with an intercept.
// Coefficient slices are indexed with the intercept first.
type OLS struct {
	Coefficients []float64
	StdErrors    []float64
	TStats       []float64
	PValues      []float64
	R2           float64
	AdjR2        float64
	// DF is the residual degrees of freedom
	DF int
}

// FitOLS regresses y on the columns of X plus an intercept using a QR decomposition
func FitOLS(X mat.Matrix, y []float64) (*OLS, error) {
	n, p := X.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}
	k := p + 1
	if n <= k {
		return nil, fmt.Errorf("need more than %d rows to fit %d coefficients, got %d", k, k, n)
	}

	A := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		A.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			A.Set(i, j+1, X.At(i, j))
		}
	}
	yVec := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(A)
	if rankDeficient(&qr, k) {
		return nil, ErrSingular
	}
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yVec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(A, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	mean := stat.Mean(y, nil)
	tss := 0.0
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}

	var ata mat.SymDense
	ata.SymOuterK(1, A.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return nil, ErrSingular
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	df := n - k
	sigma2 := rss / float64(df)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}

	m := &OLS{
		Coefficients: make([]float64, k),
		StdErrors:    make([]float64, k),
		TStats:       make([]float64, k),
		PValues:      make([]float64, k),
		DF:           df,
	}
	for j := 0; j < k; j++ {
		m.Coefficients[j] = beta.AtVec(j)
		m.StdErrors[j] = math.Sqrt(sigma2 * inv.At(j, j))
		if m.StdErrors[j] > 0 {
			m.TStats[j] = m.Coefficients[j] / m.StdErrors[j]
			m.PValues[j] = 2 * tDist.Survival(math.Abs(m.TStats[j]))
		}
	}
	if tss > 0 {
		m.R2 = 1 - rss/tss
		m.AdjR2 = 1 - (1-m.R2)*float64(n-1)/float64(df)
	}
	return m, nil
}

// rankDeficient reports whether R has a diagonal entry that is negligible
// relative to the largest one
func rankDeficient(qr *mat.QR, k int) bool {
	var r mat.Dense
	qr.RTo(&r)
	largest := 0.0
	for j := 0; j < k; j++ {
		largest = math.Max(largest, math.Abs(r.At(j, j)))
	}
	if largest == 0 {
		return true
	}
	for j := 0; j < k; j++ {
		if math.Abs(r.At(j, j)) <= 1e-10*largest {
			return true
		}
	}
	return false
}

// Predict returns the fitted values for the rows of X
func (m *OLS) Predict(X mat.Matrix) []float64 {
	n, p := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.Coefficients[0]
		for j := 0; j < p; j++ {
			v += m.Coefficients[j+1] * X.At(i, j)
		}
		out[i] = v
	}
	return out
}
