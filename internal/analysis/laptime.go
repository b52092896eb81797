package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/features"
	"github.com/yourusername/pitwall/internal/regression"
	"github.com/yourusername/pitwall/internal/stats"
)

// Model names used in reports and metrics
const (
	ModelOLS = "ols"
	ModelGBM = "gbm"
)

// ModelResult holds the evaluation of one lap time model
type ModelResult struct {
	Name  string            `json:"name"`
	Train regression.Scores `json:"train_log"`
	Test  regression.Scores `json:"test_log"`
	// RMSEMs is the test RMSE after mapping predictions back to milliseconds
	RMSEMs float64 `json:"test_rmse_ms"`
}

// Coefficient is one row of the standardised OLS coefficient table
type Coefficient struct {
	Feature  string  `json:"feature"`
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	TStat    float64 `json:"t_stat"`
	PValue   float64 `json:"p_value"`
}

// Importance is the share of boosting gain attributed to a feature
type Importance struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
}

// PredictionPoint pairs an observed test lap with both model predictions, in milliseconds
type PredictionPoint struct {
	ActualMs float64 `json:"actual_ms"`
	OLSMs    float64 `json:"ols_ms"`
	GBMMs    float64 `json:"gbm_ms"`
}

// LapTimeResult is the outcome of the lap time regression study
type LapTimeResult struct {
	Rows         int               `json:"rows"`
	TrainRows    int               `json:"train_rows"`
	TestRows     int               `json:"test_rows"`
	Circuits     int               `json:"circuits"`
	Drops        features.LapDrops `json:"drops"`
	OLS          ModelResult       `json:"ols"`
	GBM          ModelResult       `json:"gbm"`
	OLSAdjR2     float64           `json:"ols_adj_r2"`
	Coefficients []Coefficient     `json:"coefficients"`
	// ConstantFeatures were left out of OLS because they do not vary in the training set
	ConstantFeatures []string          `json:"constant_features,omitempty"`
	Importance       []Importance      `json:"importance"`
	Trees            int               `json:"trees"`
	Sample           []PredictionPoint `json:"sample"`
}

// LapTimeStudy models log lap time with OLS on standardised features and a
// gradient-boosted tree ensemble, both scored on a held-out test split.
// The circuit encoder is fitted on the training rows only.
func LapTimeStudy(ctx context.Context, ds *dataset.Dataset, cfg config.LapTimeConfig, seed int64) (*LapTimeResult, error) {
	set, err := features.BuildLapFeatures(ds, cfg, seed)
	if err != nil {
		return nil, err
	}

	train, test, err := stats.TrainTestSplit(len(set.Rows), cfg.TestFraction, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split laps: %w", err)
	}

	enc := features.FitCircuitEncoder(set.Rows, train)
	xTrain, yTrain := features.LapMatrix(set.Rows, train, enc)
	xTest, yTest := features.LapMatrix(set.Rows, test, enc)

	res := &LapTimeResult{
		Rows:      len(set.Rows),
		TrainRows: len(train),
		TestRows:  len(test),
		Circuits:  enc.Circuits(),
		Drops:     set.Drops,
	}

	active := varyingColumns(xTrain)
	for j, name := range features.LapFeatureNames {
		if !containsInt(active, j) {
			res.ConstantFeatures = append(res.ConstantFeatures, name)
		}
	}

	var scaler stats.StandardScaler
	zTrain, err := scaler.FitTransform(selectColumns(xTrain, active))
	if err != nil {
		return nil, err
	}
	zTest, err := scaler.Transform(selectColumns(xTest, active))
	if err != nil {
		return nil, err
	}

	ols, err := regression.FitOLS(zTrain, yTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to fit OLS: %w", err)
	}
	res.OLSAdjR2 = ols.AdjR2
	res.Coefficients = coefficientTable(ols, active)

	olsTest := ols.Predict(zTest)
	res.OLS = evaluate(ModelOLS, yTrain, ols.Predict(zTrain), yTest, olsTest)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gbm := regression.NewGradientBoosting(regression.GBMParams{
		NEstimators:    cfg.NEstimators,
		LearningRate:   cfg.LearningRate,
		MaxDepth:       cfg.MaxDepth,
		MinSamplesLeaf: cfg.MinSamplesLeaf,
		Subsample:      cfg.Subsample,
		Lambda:         cfg.Lambda,
		Bins:           cfg.Bins,
		Seed:           seed,
	})
	if err := gbm.Fit(ctx, xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("failed to fit gradient boosting: %w", err)
	}
	gbmTest := gbm.Predict(xTest)
	res.GBM = evaluate(ModelGBM, yTrain, gbm.Predict(xTrain), yTest, gbmTest)
	res.Trees = gbm.Trees()

	for j, gain := range gbm.FeatureImportance() {
		res.Importance = append(res.Importance, Importance{Feature: features.LapFeatureNames[j], Gain: gain})
	}
	sort.SliceStable(res.Importance, func(i, j int) bool {
		return res.Importance[i].Gain > res.Importance[j].Gain
	})

	res.Sample = samplePredictions(yTest, olsTest, gbmTest, cfg.SamplePoints)
	return res, nil
}

func evaluate(name string, yTrain, predTrain, yTest, predTest []float64) ModelResult {
	return ModelResult{
		Name:   name,
		Train:  regression.Score(yTrain, predTrain),
		Test:   regression.Score(yTest, predTest),
		RMSEMs: regression.RMSE(expAll(yTest), expAll(predTest)),
	}
}

func coefficientTable(ols *regression.OLS, active []int) []Coefficient {
	table := make([]Coefficient, 0, len(ols.Coefficients))
	for i := range ols.Coefficients {
		name := "intercept"
		if i > 0 {
			name = features.LapFeatureNames[active[i-1]]
		}
		table = append(table, Coefficient{
			Feature:  name,
			Estimate: ols.Coefficients[i],
			StdError: ols.StdErrors[i],
			TStat:    ols.TStats[i],
			PValue:   ols.PValues[i],
		})
	}
	return table
}

// varyingColumns returns the indexes of the columns of X that are not constant
func varyingColumns(X mat.Matrix) []int {
	rows, cols := X.Dims()
	col := make([]float64, rows)
	var out []int
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		if floats.Max(col) > floats.Min(col) {
			out = append(out, j)
		}
	}
	return out
}

func selectColumns(X mat.Matrix, cols []int) *mat.Dense {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(cols), nil)
	for i := 0; i < rows; i++ {
		for k, j := range cols {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func expAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Exp(x)
	}
	return out
}

// samplePredictions picks up to n evenly spaced test rows for plotting
func samplePredictions(truth, ols, gbm []float64, n int) []PredictionPoint {
	if n <= 0 || len(truth) == 0 {
		return nil
	}
	step := 1
	if len(truth) > n {
		step = len(truth) / n
	}
	out := make([]PredictionPoint, 0, min(n, len(truth)))
	for i := 0; i < len(truth) && len(out) < n; i += step {
		out = append(out, PredictionPoint{
			ActualMs: math.Exp(truth[i]),
			OLSMs:    math.Exp(ols[i]),
			GBMMs:    math.Exp(gbm[i]),
		})
	}
	return out
}
