// Package features turns the raw race tables into model-ready rows for each study.
package features

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/stats"
)

// LapFeatureNames lists the predictors produced by LapMatrix, in column order.
// circuit_effect is the target-encoded circuit.
var LapFeatureNames = []string{
	"lap_fraction",
	"lap",
	"position",
	"grid",
	"pit_in_lap",
	"pit_out_lap",
	"stops_so_far",
	"cumulative_pit_ms",
	"year",
	"driver_age",
	"circuit_effect",
}

// LapRow is one cleaned lap with its explanatory features
type LapRow struct {
	RaceID    int
	DriverID  int
	CircuitID int

	LapTimeMs  float64
	LogLapTime float64

	LapFraction     float64
	Lap             float64
	Position        float64
	Grid            float64
	PitInLap        float64
	PitOutLap       float64
	StopsSoFar      float64
	CumulativePitMs float64
	Year            float64
	DriverAge       float64
}

// LapDrops counts laps removed during cleaning, by reason
type LapDrops struct {
	BeforeMinYear int `json:"before_min_year"`
	NonPositive   int `json:"non_positive"`
	Outliers      int `json:"outliers"`
	Unmatched     int `json:"unmatched"`
	Sampled       int `json:"sampled_out"`
}

// LapFeatureSet holds the cleaned rows of the lap time study
type LapFeatureSet struct {
	Rows  []LapRow
	Drops LapDrops
}

// BuildLapFeatures joins every lap with its race, result, driver and pit stops
// and applies the cleaning rules of cfg. Rows are ordered by race, driver and lap.
func BuildLapFeatures(ds *dataset.Dataset, cfg config.LapTimeConfig, seed int64) (*LapFeatureSet, error) {
	set := &LapFeatureSet{}
	var ageSum float64
	var ageCount int

	for _, raceID := range ds.RacesWithLaps() {
		laps := ds.LapsFor(raceID)
		race, ok := ds.Race(raceID)
		if !ok {
			set.Drops.Unmatched += len(laps)
			continue
		}
		if race.Year < cfg.MinYear {
			set.Drops.BeforeMinYear += len(laps)
			continue
		}

		median := raceMedianLap(laps)
		length := raceLength(ds, raceID, laps)
		if length == 0 || math.IsNaN(median) {
			set.Drops.Unmatched += len(laps)
			continue
		}

		for start := 0; start < len(laps); {
			driverID := laps[start].DriverID
			end := start
			for end < len(laps) && laps[end].DriverID == driverID {
				end++
			}
			rows, drops := driverLapRows(ds, race, laps[start:end], median, length, cfg.OutlierFactor)
			set.Drops.NonPositive += drops.NonPositive
			set.Drops.Outliers += drops.Outliers
			set.Drops.Unmatched += drops.Unmatched
			for _, r := range rows {
				if r.DriverAge > 0 {
					ageSum += r.DriverAge
					ageCount++
				}
			}
			set.Rows = append(set.Rows, rows...)
			start = end
		}
	}

	if len(set.Rows) == 0 {
		return nil, fmt.Errorf("%w: no laps left after cleaning", models.ErrEmptyDataset)
	}

	if ageCount > 0 {
		meanAge := ageSum / float64(ageCount)
		for i := range set.Rows {
			if set.Rows[i].DriverAge == 0 {
				set.Rows[i].DriverAge = meanAge
			}
		}
	}

	if cfg.MaxRows > 0 && len(set.Rows) > cfg.MaxRows {
		keep := rand.New(rand.NewSource(seed)).Perm(len(set.Rows))[:cfg.MaxRows]
		sort.Ints(keep)
		sampled := make([]LapRow, len(keep))
		for i, idx := range keep {
			sampled[i] = set.Rows[idx]
		}
		set.Drops.Sampled = len(set.Rows) - len(sampled)
		set.Rows = sampled
	}

	return set, nil
}

func driverLapRows(ds *dataset.Dataset, race *models.Race, laps []models.LapTime, median float64, length int, factor float64) ([]LapRow, LapDrops) {
	var drops LapDrops
	driverID := laps[0].DriverID

	result, ok := ds.ResultFor(race.ID, driverID)
	if !ok {
		drops.Unmatched = len(laps)
		return nil, drops
	}

	age := 0.0
	if driver, ok := ds.Driver(driverID); ok {
		age = driver.AgeAt(race.Date)
	}

	stops := ds.StopsFor(race.ID, driverID)
	stopLaps := make(map[int]bool, len(stops))
	for _, s := range stops {
		stopLaps[s.Lap] = true
	}

	rows := make([]LapRow, 0, len(laps))
	stopIdx, stopsSoFar, pitMs := 0, 0, 0.0
	for _, lap := range laps {
		for stopIdx < len(stops) && stops[stopIdx].Lap <= lap.Lap {
			stopsSoFar++
			pitMs += float64(stops[stopIdx].Milliseconds)
			stopIdx++
		}

		ms := float64(lap.Milliseconds)
		if ms <= 0 {
			drops.NonPositive++
			continue
		}
		if ms > factor*median {
			drops.Outliers++
			continue
		}

		rows = append(rows, LapRow{
			RaceID:          race.ID,
			DriverID:        driverID,
			CircuitID:       race.CircuitID,
			LapTimeMs:       ms,
			LogLapTime:      math.Log(ms),
			LapFraction:     float64(lap.Lap) / float64(length),
			Lap:             float64(lap.Lap),
			Position:        float64(lap.Position),
			Grid:            float64(result.Grid),
			PitInLap:        indicator(stopLaps[lap.Lap]),
			PitOutLap:       indicator(stopLaps[lap.Lap-1]),
			StopsSoFar:      float64(stopsSoFar),
			CumulativePitMs: pitMs,
			Year:            float64(race.Year),
			DriverAge:       age,
		})
	}
	return rows, drops
}

// raceLength is the number of laps completed by the winner, falling back to
// the longest timed stint when the winner is unknown
func raceLength(ds *dataset.Dataset, raceID int, laps []models.LapTime) int {
	longest := 0
	for _, l := range laps {
		if l.Lap > longest {
			longest = l.Lap
		}
		if l.Lap == 1 {
			if r, ok := ds.ResultFor(raceID, l.DriverID); ok && r.Won() && r.Laps > 0 {
				return r.Laps
			}
		}
	}
	return longest
}

func raceMedianLap(laps []models.LapTime) float64 {
	ms := make([]float64, 0, len(laps))
	for _, l := range laps {
		if l.Milliseconds > 0 {
			ms = append(ms, float64(l.Milliseconds))
		}
	}
	return stats.Median(ms)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// CircuitEncoder replaces a circuit ID with the mean log lap time of the
// training rows at that circuit. Unseen circuits map to the global mean.
type CircuitEncoder struct {
	means  map[int]float64
	global float64
}

// FitCircuitEncoder learns circuit means from rows[idx]
func FitCircuitEncoder(rows []LapRow, idx []int) *CircuitEncoder {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	total := 0.0
	for _, i := range idx {
		r := rows[i]
		sums[r.CircuitID] += r.LogLapTime
		counts[r.CircuitID]++
		total += r.LogLapTime
	}

	enc := &CircuitEncoder{means: make(map[int]float64, len(sums))}
	if len(idx) > 0 {
		enc.global = total / float64(len(idx))
	}
	for id, sum := range sums {
		enc.means[id] = sum / float64(counts[id])
	}
	return enc
}

// Encode returns the learned effect of a circuit
func (e *CircuitEncoder) Encode(circuitID int) float64 {
	if m, ok := e.means[circuitID]; ok {
		return m
	}
	return e.global
}

// Circuits returns the number of circuits seen during fitting
func (e *CircuitEncoder) Circuits() int {
	return len(e.means)
}

// LapMatrix builds the design matrix (columns in LapFeatureNames order) and
// the log lap time target for rows[idx]
func LapMatrix(rows []LapRow, idx []int, enc *CircuitEncoder) (*mat.Dense, []float64) {
	if len(idx) == 0 {
		return nil, nil
	}
	X := mat.NewDense(len(idx), len(LapFeatureNames), nil)
	y := make([]float64, len(idx))
	for i, k := range idx {
		r := rows[k]
		X.SetRow(i, []float64{
			r.LapFraction,
			r.Lap,
			r.Position,
			r.Grid,
			r.PitInLap,
			r.PitOutLap,
			r.StopsSoFar,
			r.CumulativePitMs,
			r.Year,
			r.DriverAge,
			enc.Encode(r.CircuitID),
		})
		y[i] = r.LogLapTime
	}
	return X, y
}
