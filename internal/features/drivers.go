package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/stats"
)

// Style feature columns, in StyleFeatureNames order
const (
	StylePositionsGained = iota
	StyleDNFRate
	StylePitStopsPerRace
	StyleMeanPitMs
	StyleLapConsistency
	StyleRelativePace
	StylePointsPerRace
	StyleWinRate
	StylePodiumRate
)

// StyleFeatureNames lists the per-driver racing style features
var StyleFeatureNames = []string{
	"positions_gained",
	"dnf_rate",
	"pit_stops_per_race",
	"mean_pit_ms",
	"lap_consistency",
	"relative_pace",
	"points_per_race",
	"win_rate",
	"podium_rate",
}

// minCleanLaps is the number of clean laps a race needs to contribute to
// the consistency and pace features
const minCleanLaps = 5

// DriverStyle is the style feature vector of one driver
type DriverStyle struct {
	DriverID int       `json:"driver_id"`
	Name     string    `json:"name"`
	Starts   int       `json:"starts"`
	Values   []float64 `json:"values"`
	// Imputed counts features filled with the population mean
	Imputed int `json:"imputed"`
}

type driverAccumulator struct {
	starts, dnfs, wins, podiums int
	gainedSum                   float64
	gainedCount                 int
	points                      decimal.Decimal
	pitRaces, stops             int
	pitMsSum                    float64
	cvs, paces                  []float64
}

// BuildStyleFeatures aggregates every driver with at least cfg.MinRaces
// starts into a style vector, ordered by driver ID. Laps slower than
// outlierFactor times the race median are ignored by the lap features.
func BuildStyleFeatures(ds *dataset.Dataset, cfg config.StylesConfig, outlierFactor float64) ([]DriverStyle, error) {
	acc := make(map[int]*driverAccumulator)
	racesWithStops := make(map[int]bool)
	for _, p := range ds.PitStops {
		racesWithStops[p.RaceID] = true
	}
	medians := make(map[int]float64)

	for i := range ds.Results {
		res := &ds.Results[i]
		race, ok := ds.Race(res.RaceID)
		if !ok || race.Year < cfg.MinYear {
			continue
		}

		a := acc[res.DriverID]
		if a == nil {
			a = &driverAccumulator{}
			acc[res.DriverID] = a
		}

		a.starts++
		if !res.Finished(ds.StatusText(res.StatusID)) {
			a.dnfs++
		}
		if res.Won() {
			a.wins++
		}
		if res.Podium() {
			a.podiums++
		}
		if gained, ok := res.PositionsGained(); ok {
			a.gainedSum += float64(gained)
			a.gainedCount++
		}
		a.points = a.points.Add(res.Points)

		stops := ds.StopsFor(res.RaceID, res.DriverID)
		if racesWithStops[res.RaceID] {
			a.pitRaces++
			a.stops += len(stops)
			for _, s := range stops {
				a.pitMsSum += float64(s.Milliseconds)
			}
		}

		laps := ds.DriverLaps(res.RaceID, res.DriverID)
		if len(laps) == 0 {
			continue
		}
		median, ok := medians[res.RaceID]
		if !ok {
			median = raceMedianLap(ds.LapsFor(res.RaceID))
			medians[res.RaceID] = median
		}
		clean := cleanLaps(laps, stops, median, outlierFactor)
		if len(clean) < minCleanLaps || math.IsNaN(median) {
			continue
		}
		if cv := stats.CoefficientOfVariation(clean); !math.IsNaN(cv) {
			a.cvs = append(a.cvs, cv)
		}
		a.paces = append(a.paces, stats.Median(clean)/median)
	}

	ids := make([]int, 0, len(acc))
	for id, a := range acc {
		if a.starts >= cfg.MinRaces {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no driver has %d or more starts", models.ErrEmptyDataset, cfg.MinRaces)
	}
	sort.Ints(ids)

	styles := make([]DriverStyle, len(ids))
	for i, id := range ids {
		a := acc[id]
		n := float64(a.starts)
		values := make([]float64, len(StyleFeatureNames))
		values[StylePositionsGained] = ratio(a.gainedSum, a.gainedCount)
		values[StyleDNFRate] = float64(a.dnfs) / n
		values[StylePitStopsPerRace] = ratio(float64(a.stops), a.pitRaces)
		values[StyleMeanPitMs] = ratio(a.pitMsSum, a.stops)
		values[StyleLapConsistency] = stats.MeanIgnoringNaN(a.cvs)
		values[StyleRelativePace] = stats.MeanIgnoringNaN(a.paces)
		values[StylePointsPerRace] = a.points.InexactFloat64() / n
		values[StyleWinRate] = float64(a.wins) / n
		values[StylePodiumRate] = float64(a.podiums) / n

		name := fmt.Sprintf("driver %d", id)
		if d, ok := ds.Driver(id); ok {
			name = d.FullName()
		}
		styles[i] = DriverStyle{DriverID: id, Name: name, Starts: a.starts, Values: values}
	}

	imputeMissing(styles)
	return styles, nil
}

// cleanLaps drops the opening lap, pit in and out laps and outliers
func cleanLaps(laps []models.LapTime, stops []models.PitStop, median, factor float64) []float64 {
	pit := make(map[int]bool, 2*len(stops))
	for _, s := range stops {
		pit[s.Lap] = true
		pit[s.Lap+1] = true
	}
	out := make([]float64, 0, len(laps))
	for _, l := range laps {
		ms := float64(l.Milliseconds)
		if l.Lap == 1 || pit[l.Lap] || ms <= 0 || ms > factor*median {
			continue
		}
		out = append(out, ms)
	}
	return out
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// imputeMissing replaces NaN features with the mean over drivers that have a
// value, or zero when no driver has one
func imputeMissing(styles []DriverStyle) {
	for j := range StyleFeatureNames {
		col := make([]float64, len(styles))
		for i := range styles {
			col[i] = styles[i].Values[j]
		}
		fill := stats.MeanIgnoringNaN(col)
		if math.IsNaN(fill) {
			fill = 0
		}
		for i := range styles {
			if math.IsNaN(styles[i].Values[j]) {
				styles[i].Values[j] = fill
				styles[i].Imputed++
			}
		}
	}
}

// StyleMatrix stacks the style vectors into a drivers × features matrix
func StyleMatrix(styles []DriverStyle) *mat.Dense {
	if len(styles) == 0 {
		return nil
	}
	X := mat.NewDense(len(styles), len(StyleFeatureNames), nil)
	for i, s := range styles {
		X.SetRow(i, s.Values)
	}
	return X
}
