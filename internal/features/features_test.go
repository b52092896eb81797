package features

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/models"
)

func loadFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.LoadCSV(context.Background(), "../dataset/testdata/f1")
	require.NoError(t, err)
	return ds
}

func lapConfig() config.LapTimeConfig {
	return config.LapTimeConfig{MinYear: 1996, OutlierFactor: 1.5}
}

func TestBuildLapFeaturesFixture(t *testing.T) {
	ds := loadFixture(t)

	set, err := BuildLapFeatures(ds, lapConfig(), 1)
	require.NoError(t, err)
	require.Len(t, set.Rows, 16)
	assert.Equal(t, LapDrops{}, set.Drops)

	first := set.Rows[0]
	assert.Equal(t, 18, first.RaceID)
	assert.Equal(t, 1, first.DriverID)
	assert.InDelta(t, math.Log(98109), first.LogLapTime, 1e-12)
	assert.InDelta(t, 1.0/3, first.LapFraction, 1e-12)
	assert.Equal(t, 1.0, first.Grid)
	assert.Equal(t, 2008.0, first.Year)
	assert.InDelta(t, 23.19, first.DriverAge, 0.01)

	// race 19, driver 1 pits on lap 2
	inLap, outLap := set.Rows[9], set.Rows[10]
	require.Equal(t, 19, inLap.RaceID)
	require.Equal(t, 2.0, inLap.Lap)
	assert.Equal(t, 1.0, inLap.PitInLap)
	assert.Equal(t, 0.0, inLap.PitOutLap)
	assert.Equal(t, 1.0, inLap.StopsSoFar)
	assert.Equal(t, 26898.0, inLap.CumulativePitMs)
	assert.Equal(t, 1.0, outLap.PitOutLap)
	assert.Equal(t, 0.0, set.Rows[8].StopsSoFar)

	pitLane := set.Rows[len(set.Rows)-1]
	assert.Equal(t, 3, pitLane.DriverID)
	assert.Equal(t, 0.0, pitLane.Grid)
	assert.Greater(t, pitLane.DriverAge, 20.0, "unknown age is imputed")
}

func TestBuildLapFeaturesFilters(t *testing.T) {
	ds := loadFixture(t)

	cfg := lapConfig()
	cfg.MinYear = 2009
	_, err := BuildLapFeatures(ds, cfg, 1)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)

	cfg = lapConfig()
	cfg.OutlierFactor = 1.05
	set, err := BuildLapFeatures(ds, cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Drops.Outliers)

	cfg = lapConfig()
	cfg.MaxRows = 5
	set, err = BuildLapFeatures(ds, cfg, 1)
	require.NoError(t, err)
	assert.Len(t, set.Rows, 5)
	assert.Equal(t, 11, set.Drops.Sampled)
}

func TestBuildLapFeaturesSynthetic(t *testing.T) {
	ds := dataset.Synthetic(dataset.DefaultSyntheticOptions())

	set, err := BuildLapFeatures(ds, lapConfig(), 1)
	require.NoError(t, err)
	assert.Greater(t, set.Drops.Outliers, 0, "safety car laps are dropped")
	for _, r := range set.Rows {
		require.False(t, math.IsNaN(r.LogLapTime))
		require.Greater(t, r.LapFraction, 0.0)
		require.LessOrEqual(t, r.LapFraction, 1.0)
	}
}

func TestCircuitEncoder(t *testing.T) {
	rows := []LapRow{
		{CircuitID: 1, LogLapTime: 11},
		{CircuitID: 1, LogLapTime: 13},
		{CircuitID: 2, LogLapTime: 10},
		{CircuitID: 3, LogLapTime: 100},
	}

	enc := FitCircuitEncoder(rows, []int{0, 1, 2})
	assert.Equal(t, 2, enc.Circuits())
	assert.Equal(t, 12.0, enc.Encode(1))
	assert.Equal(t, 10.0, enc.Encode(2))
	assert.InDelta(t, 34.0/3, enc.Encode(3), 1e-12, "circuit only in the test rows falls back to the training mean")

	X, y := LapMatrix(rows, []int{3, 0}, enc)
	r, c := X.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, len(LapFeatureNames), c)
	assert.Equal(t, []float64{100, 11}, y)
	assert.InDelta(t, 34.0/3, X.At(0, c-1), 1e-12)

	X, y = LapMatrix(rows, nil, enc)
	assert.Nil(t, X)
	assert.Nil(t, y)
}

func TestBuildStyleFeaturesFixture(t *testing.T) {
	ds := loadFixture(t)

	styles, err := BuildStyleFeatures(ds, config.StylesConfig{MinRaces: 2}, 1.5)
	require.NoError(t, err)
	require.Len(t, styles, 3)

	hamilton := styles[0]
	assert.Equal(t, "Lewis Hamilton", hamilton.Name)
	assert.Equal(t, 2, hamilton.Starts)
	assert.InDelta(t, 3.0, hamilton.Values[StylePositionsGained], 1e-12)
	assert.Equal(t, 0.0, hamilton.Values[StyleDNFRate])
	assert.Equal(t, 0.5, hamilton.Values[StylePitStopsPerRace])
	assert.Equal(t, 26898.0, hamilton.Values[StyleMeanPitMs])
	assert.Equal(t, 8.0, hamilton.Values[StylePointsPerRace])
	assert.Equal(t, 0.5, hamilton.Values[StyleWinRate])
	assert.Equal(t, 1.0, hamilton.Values[StylePodiumRate])
	assert.Equal(t, 0.0, hamilton.Values[StyleLapConsistency], "no race has enough clean laps")
	assert.Equal(t, 2, hamilton.Imputed)

	heidfeld := styles[1]
	assert.Equal(t, 9.25, heidfeld.Values[StylePointsPerRace])
	assert.Equal(t, 2.0, heidfeld.Values[StylePositionsGained])

	massa := styles[2]
	assert.Equal(t, 0.5, massa.Values[StyleDNFRate])
	assert.Equal(t, 1.0, massa.Values[StylePositionsGained], "pit-lane start is ignored")
	assert.Equal(t, 0.0, massa.Values[StylePitStopsPerRace])
	assert.Equal(t, (26898.0+25021.0)/2, massa.Values[StyleMeanPitMs])
	assert.Equal(t, 3, massa.Imputed)

	X := StyleMatrix(styles)
	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, len(StyleFeatureNames), c)
}

func TestBuildStyleFeaturesMinRaces(t *testing.T) {
	ds := loadFixture(t)
	_, err := BuildStyleFeatures(ds, config.StylesConfig{MinRaces: 3}, 1.5)
	assert.ErrorIs(t, err, models.ErrEmptyDataset)
}

func TestBuildStyleFeaturesSynthetic(t *testing.T) {
	ds := dataset.Synthetic(dataset.DefaultSyntheticOptions())

	styles, err := BuildStyleFeatures(ds, config.StylesConfig{MinRaces: 20}, 1.5)
	require.NoError(t, err)
	assert.Len(t, styles, 12)
	for _, s := range styles {
		for j, v := range s.Values {
			assert.False(t, math.IsNaN(v), "%s of driver %d", StyleFeatureNames[j], s.DriverID)
		}
		assert.Greater(t, s.Values[StyleRelativePace], 0.9)
		assert.Less(t, s.Values[StyleRelativePace], 1.1)
	}
	assert.Less(t, styles[0].Values[StyleRelativePace], styles[11].Values[StyleRelativePace],
		"the most skilled driver laps faster")
}

func TestGridOutcomes(t *testing.T) {
	ds := loadFixture(t)

	outcomes := GridOutcomes(ds, config.GridConfig{MinYear: 1950})
	require.Len(t, outcomes, 5, "pit-lane start is excluded")
	wins := 0
	for _, o := range outcomes {
		assert.Greater(t, o.Grid, 0)
		if o.Won {
			wins++
		}
	}
	assert.Equal(t, 2, wins)

	assert.Empty(t, GridOutcomes(ds, config.GridConfig{MinYear: 2010}))
}
