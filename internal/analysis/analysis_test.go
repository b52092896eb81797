package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/features"
	"github.com/yourusername/pitwall/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Analysis.LapTime.MinYear = 2010
	cfg.Analysis.LapTime.NEstimators = 40
	cfg.Analysis.LapTime.MinSamplesLeaf = 10
	cfg.Analysis.LapTime.SamplePoints = 100
	cfg.Analysis.Styles.MinRaces = 10
	cfg.Analysis.Styles.MinYear = 2010
	cfg.Report.TopN = 20
	return cfg
}

func syntheticDataset() *dataset.Dataset {
	return dataset.Synthetic(dataset.DefaultSyntheticOptions())
}

func TestEDA(t *testing.T) {
	ds := syntheticDataset()
	opts := dataset.DefaultSyntheticOptions()

	res := EDA(ds, 20)

	require.Len(t, res.RacesPerSeason, opts.Seasons)
	for i, s := range res.RacesPerSeason {
		assert.Equal(t, opts.FirstYear+i, s.Year)
		assert.Equal(t, opts.RacesPerSeason, s.Races)
	}

	assert.Equal(t, len(ds.LapTimes), res.LapTimes.Count)
	assert.Len(t, res.LapTimeHistogram, histogramBins)

	require.Len(t, res.CircuitLapTimes, opts.Circuits)
	for i := 1; i < len(res.CircuitLapTimes); i++ {
		assert.GreaterOrEqual(t, res.CircuitLapTimes[i-1].LapTimes.Count, res.CircuitLapTimes[i].LapTimes.Count)
	}
	assert.NotEmpty(t, res.CircuitLapTimes[0].Name)

	assert.Equal(t, len(ds.PitStops), res.PitStops.Count)
	assert.GreaterOrEqual(t, res.PitStops.Min, 21000.0)

	wins := 0
	for _, d := range res.TopDrivers {
		wins += d.Count
	}
	assert.Equal(t, len(ds.Races), wins, "every race has exactly one winner")

	constructorWins := 0
	for i, c := range res.TopConstructors {
		constructorWins += c.Count
		if i > 0 {
			assert.GreaterOrEqual(t, res.TopConstructors[i-1].Count, c.Count)
		}
	}
	assert.Equal(t, len(ds.Races), constructorWins)

	total := decimal.Zero
	for _, r := range ds.Results {
		total = total.Add(r.Points)
	}
	ranked := decimal.Zero
	for _, p := range res.ConstructorPoints {
		ranked = ranked.Add(p.Points)
	}
	assert.True(t, total.Equal(ranked), "constructor points %s should sum to %s", ranked, total)

	require.Len(t, res.CircuitsByRaces, opts.Circuits)
	assert.Equal(t, len(ds.Races)/opts.Circuits, res.CircuitsByRaces[0].Count)
}

func TestEDATopN(t *testing.T) {
	res := EDA(syntheticDataset(), 2)

	assert.Len(t, res.TopDrivers, 2)
	assert.Len(t, res.ConstructorPoints, 2)
	assert.Len(t, res.CircuitLapTimes, 2)
	assert.True(t, res.ConstructorPoints[0].Points.GreaterThanOrEqual(res.ConstructorPoints[1].Points))
}

func TestEDAFixtures(t *testing.T) {
	ds, err := dataset.LoadCSV(context.Background(), "../dataset/testdata/f1")
	require.NoError(t, err)

	res := EDA(ds, 10)
	assert.Equal(t, 16, res.LapTimes.Count)
	require.Len(t, res.RacesPerSeason, 1)
	assert.Equal(t, 2008, res.RacesPerSeason[0].Year)
	require.NotEmpty(t, res.TopDrivers)
	assert.Equal(t, 1, res.TopDrivers[0].Count)
}

func TestLapTimeStudy(t *testing.T) {
	cfg := testConfig(t)
	ds := syntheticDataset()

	res, err := LapTimeStudy(context.Background(), ds, cfg.Analysis.LapTime, cfg.Analysis.Seed)
	require.NoError(t, err)

	assert.Equal(t, res.Rows, res.TrainRows+res.TestRows)
	assert.Positive(t, res.Drops.Outliers, "safety car laps should be dropped")
	assert.Equal(t, dataset.DefaultSyntheticOptions().Circuits, res.Circuits)

	assert.Len(t, res.Coefficients, 1+len(features.LapFeatureNames)-len(res.ConstantFeatures))
	assert.Equal(t, "intercept", res.Coefficients[0].Feature)

	assert.Equal(t, ModelOLS, res.OLS.Name)
	assert.Equal(t, ModelGBM, res.GBM.Name)
	assert.Greater(t, res.OLS.Test.R2, 0.8)
	assert.Greater(t, res.GBM.Test.R2, 0.8)
	assert.Positive(t, res.GBM.RMSEMs)
	assert.Equal(t, cfg.Analysis.LapTime.NEstimators, res.Trees)

	require.Len(t, res.Importance, len(features.LapFeatureNames))
	gain := 0.0
	for i, imp := range res.Importance {
		gain += imp.Gain
		if i > 0 {
			assert.GreaterOrEqual(t, res.Importance[i-1].Gain, imp.Gain)
		}
	}
	assert.InDelta(t, 1.0, gain, 1e-9)

	require.Len(t, res.Sample, cfg.Analysis.LapTime.SamplePoints)
	for _, p := range res.Sample {
		assert.Greater(t, p.ActualMs, 60000.0)
	}
}

func TestLapTimeStudyDeterministic(t *testing.T) {
	cfg := testConfig(t)
	ds := syntheticDataset()

	first, err := LapTimeStudy(context.Background(), ds, cfg.Analysis.LapTime, 7)
	require.NoError(t, err)
	second, err := LapTimeStudy(context.Background(), ds, cfg.Analysis.LapTime, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Coefficients, second.Coefficients)
	assert.Equal(t, first.GBM.Test, second.GBM.Test)
}

func TestLapTimeStudyNoLaps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.LapTime.MinYear = 2100

	_, err := LapTimeStudy(context.Background(), syntheticDataset(), cfg.Analysis.LapTime, 1)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
}

func TestLapTimeStudyCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LapTimeStudy(ctx, syntheticDataset(), cfg.Analysis.LapTime, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStyleStudySelectsK(t *testing.T) {
	cfg := testConfig(t)
	opts := dataset.DefaultSyntheticOptions()

	res, err := StyleStudy(context.Background(), syntheticDataset(), cfg.Analysis.Styles, cfg.Analysis.LapTime.OutlierFactor)
	require.NoError(t, err)

	assert.Equal(t, opts.Drivers, res.Drivers)
	require.NotNil(t, res.Selection)
	assert.Equal(t, res.Selection.BestK, res.K)
	assert.GreaterOrEqual(t, res.K, cfg.Analysis.Styles.KMin)
	assert.LessOrEqual(t, res.K, cfg.Analysis.Styles.KMax)
	assert.Greater(t, res.Silhouette, 0.0)
	require.Len(t, res.Clusters, res.K)

	members := 0
	for i, c := range res.Clusters {
		members += c.Size
		assert.Len(t, c.Members, c.Size)
		assert.Len(t, c.Centroid, len(features.StyleFeatureNames))
		assert.NotEmpty(t, c.Description)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Clusters[i-1].Size, c.Size)
		}
		for j := 1; j < len(c.Members); j++ {
			assert.GreaterOrEqual(t, c.Members[j-1].Starts, c.Members[j].Starts)
		}
	}
	assert.Equal(t, opts.Drivers, members)
}

func TestStyleStudyFixedK(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Styles.K = 3

	res, err := StyleStudy(context.Background(), syntheticDataset(), cfg.Analysis.Styles, cfg.Analysis.LapTime.OutlierFactor)
	require.NoError(t, err)

	assert.Nil(t, res.Selection)
	assert.Equal(t, 3, res.K)
	assert.Len(t, res.Clusters, 3)

	for _, c := range res.Clusters {
		rate := c.Centroid[features.StyleWinRate]
		assert.GreaterOrEqual(t, rate, -1e-9, "centroids are reported in original units")
		assert.LessOrEqual(t, rate, 1.0+1e-9)
	}
}

func TestStyleStudyOneClusterPerDriver(t *testing.T) {
	cfg := testConfig(t)
	opts := dataset.DefaultSyntheticOptions()
	cfg.Analysis.Styles.K = opts.Drivers

	res, err := StyleStudy(context.Background(), syntheticDataset(), cfg.Analysis.Styles, cfg.Analysis.LapTime.OutlierFactor)
	require.NoError(t, err)

	assert.Equal(t, opts.Drivers, res.K)
	assert.Zero(t, res.Silhouette)
	assert.Len(t, res.Clusters, opts.Drivers)
}

func TestStudiesHonourCancellation(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StyleStudy(ctx, syntheticDataset(), cfg.Analysis.Styles, cfg.Analysis.LapTime.OutlierFactor)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = GridStudy(ctx, syntheticDataset(), cfg.Analysis.Grid)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStyleStudyTooFewDrivers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Styles.MinRaces = 1000

	_, err := StyleStudy(context.Background(), syntheticDataset(), cfg.Analysis.Styles, cfg.Analysis.LapTime.OutlierFactor)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
}

func TestDescribeCentroid(t *testing.T) {
	z := make([]float64, len(features.StyleFeatureNames))
	z[features.StyleDNFRate] = -2
	z[features.StylePitStopsPerRace] = 0.5
	z[features.StyleWinRate] = 0.1
	assert.Equal(t, "low dnf_rate, high pit_stops_per_race", describeCentroid(z))

	z[features.StylePitStopsPerRace] = 0.2
	assert.Equal(t, "low dnf_rate", describeCentroid(z))

	assert.Equal(t, "close to the field average", describeCentroid(make([]float64, 3)))
}

func TestGridStudy(t *testing.T) {
	cfg := testConfig(t)
	opts := dataset.DefaultSyntheticOptions()
	races := opts.Seasons * opts.RacesPerSeason

	res, err := GridStudy(context.Background(), syntheticDataset(), cfg.Analysis.Grid)
	require.NoError(t, err)

	assert.Equal(t, races*opts.Drivers, res.Starts)
	assert.Equal(t, races, res.Wins)

	require.Len(t, res.Positions, opts.Drivers, "the empty 20+ band is dropped")
	assert.Equal(t, "1", res.Positions[0].Label)
	assert.Equal(t, races, res.Positions[0].Starts)
	for _, p := range res.Positions {
		assert.LessOrEqual(t, p.WinRate.Low, p.WinRate.Estimate)
		assert.GreaterOrEqual(t, p.WinRate.High, p.WinRate.Estimate)
	}

	require.Len(t, res.Buckets, len(chiSquareBands))
	assert.Equal(t, "11+", res.Buckets[5].Label)
	assert.Equal(t, races*(opts.Drivers-10), res.Buckets[5].Starts)

	require.NotNil(t, res.ChiSquare)
	assert.Equal(t, len(chiSquareBands)-1, res.ChiSquare.DF)
	assert.True(t, res.Significant)
	assert.Contains(t, res.Verdict, "associated with winning")
	assert.Contains(t, res.Verdict, "pole sitters win")

	require.Len(t, res.PoleByDecade, 1)
	assert.Equal(t, 2010, res.PoleByDecade[0].Decade)
	assert.Equal(t, races, res.PoleByDecade[0].Starts)
}

func TestGridStudyFoldsBackOfGrid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Grid.MaxGrid = 5
	opts := dataset.DefaultSyntheticOptions()
	races := opts.Seasons * opts.RacesPerSeason

	res, err := GridStudy(context.Background(), syntheticDataset(), cfg.Analysis.Grid)
	require.NoError(t, err)

	require.Len(t, res.Positions, 5)
	last := res.Positions[4]
	assert.Equal(t, "5+", last.Label)
	assert.Equal(t, 5, last.MinGrid)
	assert.Zero(t, last.MaxGrid)
	assert.Equal(t, races*(opts.Drivers-4), last.Starts)
}

func TestGridStudyNoStarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Grid.MinYear = 2100

	_, err := GridStudy(context.Background(), syntheticDataset(), cfg.Analysis.Grid)
	assert.Error(t, err)
}

func TestEffectSize(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.05, "negligible"},
		{0.2, "small"},
		{0.35, "medium"},
		{0.8, "large"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, effectSize(tt.v))
	}
}

type stubSource struct {
	ds  *dataset.Dataset
	err error
}

func (s stubSource) Load(context.Context) (*dataset.Dataset, error) {
	return s.ds, s.err
}

func (s stubSource) Name() string {
	return "stub"
}

type recordingRuns struct {
	runs []*models.AnalysisRun
}

func (r *recordingRuns) Create(_ context.Context, run *models.AnalysisRun) error {
	r.runs = append(r.runs, run)
	return nil
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	runs := &recordingRuns{}
	pipeline, err := NewPipeline(cfg, stubSource{ds: syntheticDataset()}, runs, nil)
	require.NoError(t, err)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, "stub", report.Source)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.NotNil(t, report.EDA)
	assert.NotNil(t, report.LapTime)
	assert.NotNil(t, report.Styles)
	assert.NotNil(t, report.Grid)
	assert.Equal(t, 4, report.Dataset.Seasons)

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, report.RunID, run.ID)

	var headline Headline
	require.NoError(t, json.Unmarshal(run.Summary, &headline))
	assert.Equal(t, report.LapTime.Rows, headline.LapRows)
	assert.Equal(t, report.Styles.K, headline.StyleClusters)
	assert.True(t, headline.GridAssociated)
	assert.Equal(t, report.Grid.Positions[0].WinRate.Estimate, headline.PoleWinRate)
}

func TestPipelineRunLoadFailure(t *testing.T) {
	cfg := testConfig(t)
	runs := &recordingRuns{}
	loadErr := errors.New("disk on fire")
	pipeline, err := NewPipeline(cfg, stubSource{err: loadErr}, runs, nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
	assert.Contains(t, err.Error(), StageLoad)
	assert.Empty(t, runs.runs)
}

func TestPipelineRunStudyFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.Styles.MinRaces = 1000

	pipeline, err := NewPipeline(cfg, stubSource{ds: syntheticDataset()}, nil, nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
}

func TestNewPipelineRequiresSource(t *testing.T) {
	_, err := NewPipeline(testConfig(t), nil, nil, nil)
	assert.Error(t, err)

	_, err = NewPipeline(nil, stubSource{}, nil, nil)
	assert.Error(t, err)
}
