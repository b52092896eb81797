package regression

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scores summarises prediction quality on a sample
type Scores struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// Score computes R², RMSE and MAE of pred against truth
func Score(truth, pred []float64) Scores {
	return Scores{R2: R2(truth, pred), RMSE: RMSE(truth, pred), MAE: MAE(truth, pred)}
}

// R2 is the coefficient of determination. A constant truth yields 0.
func R2(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(truth, nil)
	var rss, tss float64
	for i, t := range truth {
		rss += (t - pred[i]) * (t - pred[i])
		tss += (t - mean) * (t - mean)
	}
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}

// RMSE is the root mean squared error
func RMSE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return math.NaN()
	}
	return floats.Distance(truth, pred, 2) / math.Sqrt(float64(len(truth)))
}

// MAE is the mean absolute error
func MAE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return math.NaN()
	}
	return floats.Distance(truth, pred, 1) / float64(len(truth))
}
