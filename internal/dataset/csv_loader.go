package dataset

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"github.com/yourusername/pitwall/internal/models"
)

// nullMarker is the Ergast export's representation of a missing value
const nullMarker = `\N`

const dateLayout = "2006-01-02"

// columnTypes declares the numeric columns of each table; everything else is read as text
var columnTypes = map[string]map[string]series.Type{
	TableCircuits: {
		"circuitId": series.Int, "lat": series.Float, "lng": series.Float,
	},
	TableConstructors: {"constructorId": series.Int},
	TableDrivers:      {"driverId": series.Int},
	TableRaces: {
		"raceId": series.Int, "year": series.Int, "round": series.Int, "circuitId": series.Int,
	},
	TableStatus: {"statusId": series.Int},
	TableResults: {
		"resultId": series.Int, "raceId": series.Int, "driverId": series.Int,
		"constructorId": series.Int, "grid": series.Int, "position": series.Int,
		"positionOrder": series.Int, "laps": series.Int, "milliseconds": series.Int,
		"rank": series.Int, "statusId": series.Int,
	},
	TableLapTimes: {
		"raceId": series.Int, "driverId": series.Int, "lap": series.Int,
		"position": series.Int, "milliseconds": series.Int,
	},
	TablePitStops: {
		"raceId": series.Int, "driverId": series.Int, "stop": series.Int,
		"lap": series.Int, "milliseconds": series.Int,
	},
}

// LoadCSV reads every table of the Ergast CSV export found in dir
func LoadCSV(ctx context.Context, dir string) (*Dataset, error) {
	ds := &Dataset{}
	loaders := map[string]func(*frame){
		TableCircuits:     ds.loadCircuits,
		TableConstructors: ds.loadConstructors,
		TableDrivers:      ds.loadDrivers,
		TableRaces:        ds.loadRaces,
		TableStatus:       ds.loadStatus,
		TableResults:      ds.loadResults,
		TableLapTimes:     ds.loadLapTimes,
		TablePitStops:     ds.loadPitStops,
	}

	for _, table := range Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := readFrame(dir, table)
		if err != nil {
			return nil, err
		}
		loaders[table](f)
		if f.err != nil {
			return nil, f.err
		}
		ds.Skipped += f.skipped
	}

	ds.Index()
	return ds, nil
}

func readFrame(dir, table string) (*frame, error) {
	path := filepath.Join(dir, table+".csv")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	df := dataframe.ReadCSV(file,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes[table]),
		dataframe.NaNValues([]string{nullMarker, "NA", "NaN", ""}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}
	return &frame{table: table, df: df}, nil
}

// frame adapts a gota DataFrame to typed column access, recording the first
// missing column as the load error
type frame struct {
	table   string
	df      dataframe.DataFrame
	err     error
	skipped int
}

func (f *frame) rows() int {
	return f.df.Nrow()
}

func (f *frame) col(name string) (series.Series, bool) {
	s := f.df.Col(name)
	if s.Err != nil {
		if f.err == nil {
			f.err = fmt.Errorf("%w: %s.csv has no column %q", models.ErrInvalidRecord, f.table, name)
		}
		return s, false
	}
	return s, true
}

// numbers returns a column as floats, NaN for missing values
func (f *frame) numbers(name string) []float64 {
	s, ok := f.col(name)
	if !ok {
		out := make([]float64, f.rows())
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	return s.Float()
}

// texts returns a column as strings, empty for missing values
func (f *frame) texts(name string) []string {
	out := make([]string, f.rows())
	s, ok := f.col(name)
	if !ok {
		return out
	}
	for i := range out {
		if e := s.Elem(i); !e.IsNA() {
			out[i] = e.String()
		}
	}
	return out
}

func toInt(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}

func optionalInt(v float64) *int {
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}

func intOrZero(v float64) int {
	n, _ := toInt(v)
	return n
}

func floatOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (d *Dataset) loadCircuits(f *frame) {
	ids, refs, names := f.numbers("circuitId"), f.texts("circuitRef"), f.texts("name")
	locations, countries := f.texts("location"), f.texts("country")
	lats, lngs := f.numbers("lat"), f.numbers("lng")
	for i := 0; i < f.rows(); i++ {
		id, ok := toInt(ids[i])
		if !ok {
			f.skipped++
			continue
		}
		d.Circuits = append(d.Circuits, models.Circuit{
			ID: id, Ref: refs[i], Name: names[i], Location: locations[i], Country: countries[i],
			Lat: floatOrZero(lats[i]), Lng: floatOrZero(lngs[i]),
		})
	}
}

func (d *Dataset) loadConstructors(f *frame) {
	ids, refs, names, nationalities := f.numbers("constructorId"), f.texts("constructorRef"), f.texts("name"), f.texts("nationality")
	for i := 0; i < f.rows(); i++ {
		id, ok := toInt(ids[i])
		if !ok {
			f.skipped++
			continue
		}
		d.Constructors = append(d.Constructors, models.Constructor{
			ID: id, Ref: refs[i], Name: names[i], Nationality: nationalities[i],
		})
	}
}

func (d *Dataset) loadDrivers(f *frame) {
	ids, refs, codes := f.numbers("driverId"), f.texts("driverRef"), f.texts("code")
	forenames, surnames := f.texts("forename"), f.texts("surname")
	dobs, nationalities := f.texts("dob"), f.texts("nationality")
	for i := 0; i < f.rows(); i++ {
		id, ok := toInt(ids[i])
		if !ok {
			f.skipped++
			continue
		}
		driver := models.Driver{
			ID: id, Ref: refs[i], Code: codes[i], Forename: forenames[i], Surname: surnames[i],
			Nationality: nationalities[i],
		}
		if dob, err := time.Parse(dateLayout, dobs[i]); err == nil {
			driver.DOB = &dob
		}
		d.Drivers = append(d.Drivers, driver)
	}
}

func (d *Dataset) loadRaces(f *frame) {
	ids, years, rounds, circuits := f.numbers("raceId"), f.numbers("year"), f.numbers("round"), f.numbers("circuitId")
	names, dates := f.texts("name"), f.texts("date")
	for i := 0; i < f.rows(); i++ {
		id, okID := toInt(ids[i])
		year, okYear := toInt(years[i])
		if !okID || !okYear {
			f.skipped++
			continue
		}
		race := models.Race{
			ID: id, Year: year, Round: intOrZero(rounds[i]), CircuitID: intOrZero(circuits[i]), Name: names[i],
		}
		if date, err := time.Parse(dateLayout, dates[i]); err == nil {
			race.Date = date
		}
		d.Races = append(d.Races, race)
	}
}

func (d *Dataset) loadStatus(f *frame) {
	ids, texts := f.numbers("statusId"), f.texts("status")
	for i := 0; i < f.rows(); i++ {
		id, ok := toInt(ids[i])
		if !ok {
			f.skipped++
			continue
		}
		d.Statuses = append(d.Statuses, models.Status{ID: id, Status: texts[i]})
	}
}

func (d *Dataset) loadResults(f *frame) {
	ids, races, drivers, constructors := f.numbers("resultId"), f.numbers("raceId"), f.numbers("driverId"), f.numbers("constructorId")
	grids, positions, orders := f.numbers("grid"), f.numbers("position"), f.numbers("positionOrder")
	points, laps, millis := f.texts("points"), f.numbers("laps"), f.numbers("milliseconds")
	ranks, statuses := f.numbers("rank"), f.numbers("statusId")
	for i := 0; i < f.rows(); i++ {
		id, okID := toInt(ids[i])
		raceID, okRace := toInt(races[i])
		driverID, okDriver := toInt(drivers[i])
		order, okOrder := toInt(orders[i])
		if !okID || !okRace || !okDriver || !okOrder {
			f.skipped++
			continue
		}
		pts, err := decimal.NewFromString(points[i])
		if err != nil {
			pts = decimal.Zero
		}
		d.Results = append(d.Results, models.Result{
			ID:             id,
			RaceID:         raceID,
			DriverID:       driverID,
			ConstructorID:  intOrZero(constructors[i]),
			Grid:           intOrZero(grids[i]),
			Position:       optionalInt(positions[i]),
			PositionOrder:  order,
			Points:         pts,
			Laps:           intOrZero(laps[i]),
			Milliseconds:   optionalInt(millis[i]),
			FastestLapRank: optionalInt(ranks[i]),
			StatusID:       intOrZero(statuses[i]),
		})
	}
}

func (d *Dataset) loadLapTimes(f *frame) {
	races, drivers, laps := f.numbers("raceId"), f.numbers("driverId"), f.numbers("lap")
	positions, millis := f.numbers("position"), f.numbers("milliseconds")
	d.LapTimes = make([]models.LapTime, 0, f.rows())
	for i := 0; i < f.rows(); i++ {
		raceID, okRace := toInt(races[i])
		driverID, okDriver := toInt(drivers[i])
		lap, okLap := toInt(laps[i])
		ms, okMs := toInt(millis[i])
		if !okRace || !okDriver || !okLap || !okMs {
			f.skipped++
			continue
		}
		d.LapTimes = append(d.LapTimes, models.LapTime{
			RaceID: raceID, DriverID: driverID, Lap: lap, Position: intOrZero(positions[i]), Milliseconds: ms,
		})
	}
}

func (d *Dataset) loadPitStops(f *frame) {
	races, drivers, stops := f.numbers("raceId"), f.numbers("driverId"), f.numbers("stop")
	laps, millis := f.numbers("lap"), f.numbers("milliseconds")
	for i := 0; i < f.rows(); i++ {
		raceID, okRace := toInt(races[i])
		driverID, okDriver := toInt(drivers[i])
		lap, okLap := toInt(laps[i])
		if !okRace || !okDriver || !okLap {
			f.skipped++
			continue
		}
		d.PitStops = append(d.PitStops, models.PitStop{
			RaceID: raceID, DriverID: driverID, Stop: intOrZero(stops[i]), Lap: lap, Milliseconds: intOrZero(millis[i]),
		})
	}
}
