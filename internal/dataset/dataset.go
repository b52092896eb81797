// Package dataset loads and indexes the historical Formula 1 tables.
package dataset

import (
	"fmt"
	"sort"

	"github.com/yourusername/pitwall/internal/models"
)

// Table names, matching the CSV file stems of the Ergast export
const (
	TableCircuits     = "circuits"
	TableConstructors = "constructors"
	TableDrivers      = "drivers"
	TableRaces        = "races"
	TableStatus       = "status"
	TableResults      = "results"
	TableLapTimes     = "lap_times"
	TablePitStops     = "pit_stops"
)

// Tables lists every table in load order
var Tables = []string{
	TableCircuits,
	TableConstructors,
	TableDrivers,
	TableRaces,
	TableStatus,
	TableResults,
	TableLapTimes,
	TablePitStops,
}

// RaceDriver identifies one driver's participation in one race
type RaceDriver struct {
	RaceID   int
	DriverID int
}

type span struct {
	start, end int
}

// Dataset holds every table plus lookup indexes built by Index
type Dataset struct {
	Circuits     []models.Circuit
	Constructors []models.Constructor
	Drivers      []models.Driver
	Races        []models.Race
	Statuses     []models.Status
	Results      []models.Result
	LapTimes     []models.LapTime
	PitStops     []models.PitStop

	// Skipped counts rows dropped while loading because a key column was null
	Skipped int

	circuits     map[int]*models.Circuit
	constructors map[int]*models.Constructor
	drivers      map[int]*models.Driver
	races        map[int]*models.Race
	statuses     map[int]string
	results      map[RaceDriver]*models.Result
	raceLaps     map[int]span
	driverLaps   map[RaceDriver]span
	stops        map[RaceDriver][]models.PitStop
}

// Summary describes the size of a dataset
type Summary struct {
	RowCounts map[string]int `json:"row_counts"`
	FirstYear int            `json:"first_year"`
	LastYear  int            `json:"last_year"`
	Seasons   int            `json:"seasons"`
	Skipped   int            `json:"skipped_rows"`
	Dangling  int            `json:"dangling_references"`
}

// Index sorts lap times and pit stops and builds the lookup maps.
// It must be called after the tables are populated and before any lookup.
func (d *Dataset) Index() {
	sort.Slice(d.LapTimes, func(i, j int) bool {
		a, b := d.LapTimes[i], d.LapTimes[j]
		if a.RaceID != b.RaceID {
			return a.RaceID < b.RaceID
		}
		if a.DriverID != b.DriverID {
			return a.DriverID < b.DriverID
		}
		return a.Lap < b.Lap
	})
	sort.Slice(d.PitStops, func(i, j int) bool {
		a, b := d.PitStops[i], d.PitStops[j]
		if a.RaceID != b.RaceID {
			return a.RaceID < b.RaceID
		}
		if a.DriverID != b.DriverID {
			return a.DriverID < b.DriverID
		}
		return a.Stop < b.Stop
	})

	d.circuits = make(map[int]*models.Circuit, len(d.Circuits))
	for i := range d.Circuits {
		d.circuits[d.Circuits[i].ID] = &d.Circuits[i]
	}
	d.constructors = make(map[int]*models.Constructor, len(d.Constructors))
	for i := range d.Constructors {
		d.constructors[d.Constructors[i].ID] = &d.Constructors[i]
	}
	d.drivers = make(map[int]*models.Driver, len(d.Drivers))
	for i := range d.Drivers {
		d.drivers[d.Drivers[i].ID] = &d.Drivers[i]
	}
	d.races = make(map[int]*models.Race, len(d.Races))
	for i := range d.Races {
		d.races[d.Races[i].ID] = &d.Races[i]
	}
	d.statuses = make(map[int]string, len(d.Statuses))
	for _, s := range d.Statuses {
		d.statuses[s.ID] = s.Status
	}
	d.results = make(map[RaceDriver]*models.Result, len(d.Results))
	for i := range d.Results {
		r := &d.Results[i]
		d.results[RaceDriver{RaceID: r.RaceID, DriverID: r.DriverID}] = r
	}

	d.raceLaps = make(map[int]span)
	d.driverLaps = make(map[RaceDriver]span)
	for i := 0; i < len(d.LapTimes); {
		raceID := d.LapTimes[i].RaceID
		raceStart := i
		for i < len(d.LapTimes) && d.LapTimes[i].RaceID == raceID {
			driverID := d.LapTimes[i].DriverID
			driverStart := i
			for i < len(d.LapTimes) && d.LapTimes[i].RaceID == raceID && d.LapTimes[i].DriverID == driverID {
				i++
			}
			d.driverLaps[RaceDriver{RaceID: raceID, DriverID: driverID}] = span{driverStart, i}
		}
		d.raceLaps[raceID] = span{raceStart, i}
	}

	d.stops = make(map[RaceDriver][]models.PitStop)
	for i := 0; i < len(d.PitStops); {
		key := RaceDriver{RaceID: d.PitStops[i].RaceID, DriverID: d.PitStops[i].DriverID}
		start := i
		for i < len(d.PitStops) && d.PitStops[i].RaceID == key.RaceID && d.PitStops[i].DriverID == key.DriverID {
			i++
		}
		d.stops[key] = d.PitStops[start:i]
	}
}

// Race returns the race with the given ID
func (d *Dataset) Race(id int) (*models.Race, bool) {
	r, ok := d.races[id]
	return r, ok
}

// Driver returns the driver with the given ID
func (d *Dataset) Driver(id int) (*models.Driver, bool) {
	dr, ok := d.drivers[id]
	return dr, ok
}

// Circuit returns the circuit with the given ID
func (d *Dataset) Circuit(id int) (*models.Circuit, bool) {
	c, ok := d.circuits[id]
	return c, ok
}

// Constructor returns the constructor with the given ID
func (d *Dataset) Constructor(id int) (*models.Constructor, bool) {
	c, ok := d.constructors[id]
	return c, ok
}

// StatusText returns the status description for a status ID
func (d *Dataset) StatusText(id int) string {
	return d.statuses[id]
}

// ResultFor returns a driver's classification in a race
func (d *Dataset) ResultFor(raceID, driverID int) (*models.Result, bool) {
	r, ok := d.results[RaceDriver{RaceID: raceID, DriverID: driverID}]
	return r, ok
}

// LapsFor returns every lap of a race ordered by driver then lap
func (d *Dataset) LapsFor(raceID int) []models.LapTime {
	s, ok := d.raceLaps[raceID]
	if !ok {
		return nil
	}
	return d.LapTimes[s.start:s.end]
}

// DriverLaps returns one driver's laps of a race in lap order
func (d *Dataset) DriverLaps(raceID, driverID int) []models.LapTime {
	s, ok := d.driverLaps[RaceDriver{RaceID: raceID, DriverID: driverID}]
	if !ok {
		return nil
	}
	return d.LapTimes[s.start:s.end]
}

// StopsFor returns one driver's pit stops of a race in stop order
func (d *Dataset) StopsFor(raceID, driverID int) []models.PitStop {
	return d.stops[RaceDriver{RaceID: raceID, DriverID: driverID}]
}

// RacesWithLaps returns the IDs of races that have lap timing, ascending
func (d *Dataset) RacesWithLaps() []int {
	ids := make([]int, 0, len(d.raceLaps))
	for id := range d.raceLaps {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RowCounts returns the number of rows per table
func (d *Dataset) RowCounts() map[string]int {
	return map[string]int{
		TableCircuits:     len(d.Circuits),
		TableConstructors: len(d.Constructors),
		TableDrivers:      len(d.Drivers),
		TableRaces:        len(d.Races),
		TableStatus:       len(d.Statuses),
		TableResults:      len(d.Results),
		TableLapTimes:     len(d.LapTimes),
		TablePitStops:     len(d.PitStops),
	}
}

// Validate fails when the tables every study depends on are empty
func (d *Dataset) Validate() error {
	counts := d.RowCounts()
	for _, table := range []string{TableRaces, TableResults, TableLapTimes} {
		if counts[table] == 0 {
			return fmt.Errorf("%w: table %s has no rows", models.ErrEmptyDataset, table)
		}
	}
	return nil
}

// DanglingReferences counts results, laps and stops whose race or driver is unknown
func (d *Dataset) DanglingReferences() int {
	dangling := 0
	known := func(raceID, driverID int) bool {
		_, okRace := d.races[raceID]
		_, okDriver := d.drivers[driverID]
		return okRace && okDriver
	}
	for _, r := range d.Results {
		if !known(r.RaceID, r.DriverID) {
			dangling++
		}
	}
	for key := range d.driverLaps {
		if !known(key.RaceID, key.DriverID) {
			dangling++
		}
	}
	for key := range d.stops {
		if !known(key.RaceID, key.DriverID) {
			dangling++
		}
	}
	return dangling
}

// Summary returns row counts and the season range
func (d *Dataset) Summary() Summary {
	s := Summary{
		RowCounts: d.RowCounts(),
		Skipped:   d.Skipped,
		Dangling:  d.DanglingReferences(),
	}
	seasons := map[int]bool{}
	for _, r := range d.Races {
		if s.FirstYear == 0 || r.Year < s.FirstYear {
			s.FirstYear = r.Year
		}
		if r.Year > s.LastYear {
			s.LastYear = r.Year
		}
		seasons[r.Year] = true
	}
	s.Seasons = len(seasons)
	return s
}
