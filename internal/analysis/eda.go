package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/stats"
)

const histogramBins = 40

// SeasonCount is the number of races held in one season
type SeasonCount struct {
	Year  int `json:"year"`
	Races int `json:"races"`
}

// Tally counts occurrences for a driver, constructor or circuit
type Tally struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PointsTally is the championship points total of a constructor
type PointsTally struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Points decimal.Decimal `json:"points"`
}

// CircuitLaps summarises the lap times recorded at one circuit
type CircuitLaps struct {
	CircuitID int           `json:"circuit_id"`
	Name      string        `json:"name"`
	LapTimes  stats.Summary `json:"lap_times_ms"`
}

// EDAResult holds the exploratory summaries of the dataset
type EDAResult struct {
	RacesPerSeason    []SeasonCount `json:"races_per_season"`
	LapTimes          stats.Summary `json:"lap_times_ms"`
	LapTimeHistogram  []stats.Bin   `json:"lap_time_histogram_s"`
	CircuitLapTimes   []CircuitLaps `json:"circuit_lap_times"`
	PitStops          stats.Summary `json:"pit_stops_ms"`
	TopDrivers        []Tally       `json:"top_drivers_by_wins"`
	TopConstructors   []Tally       `json:"top_constructors_by_wins"`
	ConstructorPoints []PointsTally `json:"constructor_points"`
	CircuitsByRaces   []Tally       `json:"circuits_by_races"`
}

// EDA computes the exploratory summaries. Ranked lists are cut to topN entries.
func EDA(ds *dataset.Dataset, topN int) *EDAResult {
	res := &EDAResult{}

	seasons := map[int]int{}
	hosted := map[int]int{}
	for _, race := range ds.Races {
		seasons[race.Year]++
		hosted[race.CircuitID]++
	}
	for year, n := range seasons {
		res.RacesPerSeason = append(res.RacesPerSeason, SeasonCount{Year: year, Races: n})
	}
	sort.Slice(res.RacesPerSeason, func(i, j int) bool {
		return res.RacesPerSeason[i].Year < res.RacesPerSeason[j].Year
	})

	lapMs := make([]float64, len(ds.LapTimes))
	byCircuit := map[int][]float64{}
	for i, lap := range ds.LapTimes {
		lapMs[i] = float64(lap.Milliseconds)
		if race, ok := ds.Race(lap.RaceID); ok {
			byCircuit[race.CircuitID] = append(byCircuit[race.CircuitID], lapMs[i])
		}
	}
	res.LapTimes = stats.Describe(lapMs)
	res.LapTimeHistogram = lapHistogram(lapMs, res.LapTimes)

	for id, laps := range byCircuit {
		res.CircuitLapTimes = append(res.CircuitLapTimes, CircuitLaps{
			CircuitID: id,
			Name:      circuitName(ds, id),
			LapTimes:  stats.Describe(laps),
		})
	}
	sort.Slice(res.CircuitLapTimes, func(i, j int) bool {
		a, b := res.CircuitLapTimes[i], res.CircuitLapTimes[j]
		if a.LapTimes.Count != b.LapTimes.Count {
			return a.LapTimes.Count > b.LapTimes.Count
		}
		return a.CircuitID < b.CircuitID
	})
	res.CircuitLapTimes = truncate(res.CircuitLapTimes, topN)

	stopMs := make([]float64, 0, len(ds.PitStops))
	for _, stop := range ds.PitStops {
		if stop.Milliseconds > 0 {
			stopMs = append(stopMs, float64(stop.Milliseconds))
		}
	}
	res.PitStops = stats.Describe(stopMs)

	driverWins := map[int]int{}
	constructorWins := map[int]int{}
	points := map[int]decimal.Decimal{}
	for i := range ds.Results {
		r := &ds.Results[i]
		if r.Won() {
			driverWins[r.DriverID]++
			constructorWins[r.ConstructorID]++
		}
		points[r.ConstructorID] = points[r.ConstructorID].Add(r.Points)
	}

	res.TopDrivers = rankTallies(driverWins, topN, func(id int) string {
		if d, ok := ds.Driver(id); ok {
			return d.FullName()
		}
		return ""
	})
	res.TopConstructors = rankTallies(constructorWins, topN, func(id int) string {
		return constructorName(ds, id)
	})
	res.CircuitsByRaces = rankTallies(hosted, topN, func(id int) string {
		return circuitName(ds, id)
	})

	for id, total := range points {
		res.ConstructorPoints = append(res.ConstructorPoints, PointsTally{ID: id, Name: constructorName(ds, id), Points: total})
	}
	sort.Slice(res.ConstructorPoints, func(i, j int) bool {
		a, b := res.ConstructorPoints[i], res.ConstructorPoints[j]
		if c := a.Points.Cmp(b.Points); c != 0 {
			return c > 0
		}
		return a.ID < b.ID
	})
	res.ConstructorPoints = truncate(res.ConstructorPoints, topN)

	return res
}

// lapHistogram bins lap times in seconds over the 5th to 95th percentile,
// which keeps safety car and red flag laps from flattening the plot
func lapHistogram(lapMs []float64, summary stats.Summary) []stats.Bin {
	if summary.Count == 0 {
		return nil
	}
	seconds := make([]float64, len(lapMs))
	for i, ms := range lapMs {
		seconds[i] = ms / 1000
	}
	return stats.Histogram(seconds, histogramBins, summary.P5/1000, summary.P95/1000)
}

func rankTallies(counts map[int]int, topN int, name func(int) string) []Tally {
	out := make([]Tally, 0, len(counts))
	for id, n := range counts {
		if n == 0 {
			continue
		}
		out = append(out, Tally{ID: id, Name: name(id), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, topN)
}

func truncate[T any](xs []T, n int) []T {
	if n > 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}

func circuitName(ds *dataset.Dataset, id int) string {
	if c, ok := ds.Circuit(id); ok {
		return c.Name
	}
	return ""
}

func constructorName(ds *dataset.Dataset, id int) string {
	if c, ok := ds.Constructor(id); ok {
		return c.Name
	}
	return ""
}
