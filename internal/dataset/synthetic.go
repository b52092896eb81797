package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/pitwall/internal/models"
)

// SyntheticOptions controls the shape of a generated dataset
type SyntheticOptions struct {
	Seed           int64
	Drivers        int
	Constructors   int
	Circuits       int
	FirstYear      int
	Seasons        int
	RacesPerSeason int
	// LapsPerRace is the race length at the first circuit; each further circuit adds four laps
	LapsPerRace int
}

// DefaultSyntheticOptions returns a small dataset suitable for tests and demos
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Seed:           1,
		Drivers:        12,
		Constructors:   4,
		Circuits:       3,
		FirstYear:      2010,
		Seasons:        4,
		RacesPerSeason: 6,
		LapsPerRace:    30,
	}
}

var championshipPoints = []int64{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

// Synthetic generates an indexed dataset with the structure of the Ergast
// export. Faster drivers qualify and finish ahead more often, lap times
// fall with fuel burn and pit laps are slower, so every study has a signal
// to find.
func Synthetic(opts SyntheticOptions) *Dataset {
	rng := rand.New(rand.NewSource(opts.Seed))
	ds := &Dataset{}

	ds.Statuses = []models.Status{
		{ID: 1, Status: models.StatusFinished},
		{ID: 5, Status: "Engine"},
		{ID: 11, Status: "+1 Lap"},
	}

	baseLap := make(map[int]float64, opts.Circuits)
	for c := 1; c <= opts.Circuits; c++ {
		ds.Circuits = append(ds.Circuits, models.Circuit{
			ID: c, Ref: fmt.Sprintf("circuit_%d", c), Name: fmt.Sprintf("Circuit %d", c), Country: "Nowhere",
		})
		baseLap[c] = 75000 + float64(c-1)*7500
	}
	for c := 1; c <= opts.Constructors; c++ {
		ds.Constructors = append(ds.Constructors, models.Constructor{
			ID: c, Ref: fmt.Sprintf("team_%d", c), Name: fmt.Sprintf("Team %d", c), Nationality: "British",
		})
	}

	skill := make(map[int]float64, opts.Drivers)
	reliability := make(map[int]float64, opts.Drivers)
	for d := 1; d <= opts.Drivers; d++ {
		dob := time.Date(1975+rng.Intn(15), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		ds.Drivers = append(ds.Drivers, models.Driver{
			ID: d, Ref: fmt.Sprintf("driver_%d", d), Code: fmt.Sprintf("D%02d", d),
			Forename: "Driver", Surname: fmt.Sprintf("%d", d), DOB: &dob, Nationality: "British",
		})
		skill[d] = float64(d-1) / float64(max(opts.Drivers-1, 1))
		reliability[d] = 0.03 + 0.2*float64(d%3)/2
	}

	raceID, resultID := 0, 0
	for season := 0; season < opts.Seasons; season++ {
		year := opts.FirstYear + season
		for round := 1; round <= opts.RacesPerSeason; round++ {
			raceID++
			circuitID := 1 + (round-1)%opts.Circuits
			raceLaps := opts.LapsPerRace + 4*(circuitID-1)
			ds.Races = append(ds.Races, models.Race{
				ID: raceID, Year: year, Round: round, CircuitID: circuitID,
				Name: fmt.Sprintf("Grand Prix %d", round), Date: time.Date(year, time.Month(3+round), 10, 0, 0, 0, 0, time.UTC),
			})

			type entrant struct {
				driverID int
				score    float64
				dnfLap   int
			}
			entrants := make([]entrant, 0, opts.Drivers)
			for d := 1; d <= opts.Drivers; d++ {
				entrants = append(entrants, entrant{driverID: d, score: skill[d] + rng.NormFloat64()*0.15})
			}
			sort.Slice(entrants, func(i, j int) bool { return entrants[i].score < entrants[j].score })
			grid := make(map[int]int, len(entrants))
			for i, e := range entrants {
				grid[e.driverID] = i + 1
			}

			for i := range entrants {
				e := &entrants[i]
				e.score = skill[e.driverID]*0.6 + float64(grid[e.driverID])/float64(opts.Drivers)*0.6 + rng.NormFloat64()*0.2
				if rng.Float64() < reliability[e.driverID] {
					e.dnfLap = 1 + rng.Intn(raceLaps-1)
				}
			}
			sort.Slice(entrants, func(i, j int) bool {
				a, b := entrants[i], entrants[j]
				if (a.dnfLap == 0) != (b.dnfLap == 0) {
					return a.dnfLap == 0
				}
				if a.dnfLap != b.dnfLap {
					return a.dnfLap > b.dnfLap
				}
				return a.score < b.score
			})

			safetyCarLap := 2 + rng.Intn(raceLaps-2)
			for order, e := range entrants {
				resultID++
				laps := raceLaps
				statusID := 1
				var position *int
				switch {
				case e.dnfLap > 0:
					laps = e.dnfLap
					statusID = 5
				case order >= opts.Drivers-2:
					laps = raceLaps - 1
					statusID = 11
				}
				if statusID != 5 {
					p := order + 1
					position = &p
				}
				points := decimal.Zero
				if position != nil && order < len(championshipPoints) {
					points = decimal.NewFromInt(championshipPoints[order])
				}
				constructorID := 1 + (e.driverID-1)%opts.Constructors
				ds.Results = append(ds.Results, models.Result{
					ID: resultID, RaceID: raceID, DriverID: e.driverID, ConstructorID: constructorID,
					Grid: grid[e.driverID], Position: position, PositionOrder: order + 1,
					Points: points, Laps: laps, StatusID: statusID,
				})

				stopLap := 8 + rng.Intn(raceLaps/2)
				if stopLap < laps {
					ds.PitStops = append(ds.PitStops, models.PitStop{
						RaceID: raceID, DriverID: e.driverID, Stop: 1, Lap: stopLap,
						Milliseconds: 21000 + rng.Intn(4000),
					})
				}

				for lap := 1; lap <= laps; lap++ {
					ms := baseLap[circuitID] + skill[e.driverID]*1200 - float64(lap)*40 + rng.NormFloat64()*250
					switch {
					case lap == 1:
						ms += 4000
					case lap == stopLap:
						ms += 20000
					case lap == stopLap+1:
						ms += 2500
					case lap == safetyCarLap:
						ms *= 1.6
					}
					ds.LapTimes = append(ds.LapTimes, models.LapTime{
						RaceID: raceID, DriverID: e.driverID, Lap: lap, Position: order + 1,
						Milliseconds: int(math.Round(ms)),
					})
				}
			}
		}
	}

	ds.Index()
	return ds
}
