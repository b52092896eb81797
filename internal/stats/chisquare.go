package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerateTable is returned when a contingency table has an empty row or column
var ErrDegenerateTable = errors.New("contingency table has an empty row or column")

// ChiSquareResult is the outcome of a chi-square test of independence
type ChiSquareResult struct {
	Statistic float64     `json:"statistic"`
	DF        int         `json:"df"`
	PValue    float64     `json:"p_value"`
	CramersV  float64     `json:"cramers_v"`
	N         float64     `json:"n"`
	Expected  [][]float64 `json:"expected"`
	// LowExpected counts cells with an expected count below 5
	LowExpected int `json:"low_expected_cells"`
}

// ChiSquareIndependence tests whether the row and column variables of an
// r×c table of observed counts are independent
func ChiSquareIndependence(table [][]float64) (*ChiSquareResult, error) {
	rows := len(table)
	if rows < 2 {
		return nil, fmt.Errorf("contingency table needs at least 2 rows, got %d", rows)
	}
	cols := len(table[0])
	if cols < 2 {
		return nil, fmt.Errorf("contingency table needs at least 2 columns, got %d", cols)
	}

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	total := 0.0
	for i, row := range table {
		if len(row) != cols {
			return nil, fmt.Errorf("contingency table row %d has %d columns, want %d", i, len(row), cols)
		}
		for j, v := range row {
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("contingency table cell (%d, %d) is not a count: %v", i, j, v)
			}
			rowSums[i] += v
			colSums[j] += v
			total += v
		}
	}
	for _, s := range rowSums {
		if s == 0 {
			return nil, ErrDegenerateTable
		}
	}
	for _, s := range colSums {
		if s == 0 {
			return nil, ErrDegenerateTable
		}
	}

	observed := make([]float64, 0, rows*cols)
	expectedFlat := make([]float64, 0, rows*cols)
	expected := make([][]float64, rows)
	low := 0
	for i := range table {
		expected[i] = make([]float64, cols)
		for j := range table[i] {
			e := rowSums[i] * colSums[j] / total
			expected[i][j] = e
			if e < 5 {
				low++
			}
			observed = append(observed, table[i][j])
			expectedFlat = append(expectedFlat, e)
		}
	}

	chi2 := stat.ChiSquare(observed, expectedFlat)
	df := (rows - 1) * (cols - 1)
	minDim := math.Min(float64(rows), float64(cols)) - 1

	return &ChiSquareResult{
		Statistic:   chi2,
		DF:          df,
		PValue:      distuv.ChiSquared{K: float64(df)}.Survival(chi2),
		CramersV:    math.Sqrt(chi2 / (total * minDim)),
		N:           total,
		Expected:    expected,
		LowExpected: low,
	}, nil
}
