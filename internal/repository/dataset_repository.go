package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/dataset"
	"github.com/yourusername/pitwall/internal/models"
)

// tableNames maps dataset tables to their database tables
var tableNames = map[string]string{
	dataset.TableCircuits:     "f1_circuits",
	dataset.TableConstructors: "f1_constructors",
	dataset.TableDrivers:      "f1_drivers",
	dataset.TableRaces:        "f1_races",
	dataset.TableStatus:       "f1_status",
	dataset.TableResults:      "f1_results",
	dataset.TableLapTimes:     "f1_lap_times",
	dataset.TablePitStops:     "f1_pit_stops",
}

var (
	_ DatasetRepository = (*PostgresDatasetRepository)(nil)
	_ dataset.Loader    = (*PostgresDatasetRepository)(nil)
)

// PostgresDatasetRepository implements DatasetRepository for PostgreSQL
type PostgresDatasetRepository struct {
	db *database.DB
}

// NewPostgresDatasetRepository creates a new dataset repository
func NewPostgresDatasetRepository(db *database.DB) *PostgresDatasetRepository {
	return &PostgresDatasetRepository{db: db}
}

type copyTable struct {
	name    string
	columns []string
	rows    [][]interface{}
}

// Store truncates the f1_* tables and bulk loads ds with COPY in one transaction
func (r *PostgresDatasetRepository) Store(ctx context.Context, ds *dataset.Dataset) error {
	tables := copyTables(ds)

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		truncate := "TRUNCATE"
		for i, table := range dataset.Tables {
			if i > 0 {
				truncate += ","
			}
			truncate += " " + tableNames[table]
		}
		if _, err := tx.Exec(ctx, truncate); err != nil {
			return fmt.Errorf("failed to truncate dataset tables: %w", err)
		}

		for _, t := range tables {
			if len(t.rows) == 0 {
				continue
			}
			count, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(t.rows))
			if err != nil {
				return fmt.Errorf("failed to copy %s: %w", t.name, err)
			}
			if count != int64(len(t.rows)) {
				return fmt.Errorf("inserted %d rows into %s, expected %d", count, t.name, len(t.rows))
			}
		}
		return nil
	})
}

func copyTables(ds *dataset.Dataset) []copyTable {
	circuits := copyTable{name: "f1_circuits", columns: []string{"circuit_id", "circuit_ref", "name", "location", "country", "lat", "lng"}}
	for _, c := range ds.Circuits {
		circuits.rows = append(circuits.rows, []interface{}{c.ID, c.Ref, c.Name, c.Location, c.Country, c.Lat, c.Lng})
	}

	constructors := copyTable{name: "f1_constructors", columns: []string{"constructor_id", "constructor_ref", "name", "nationality"}}
	for _, c := range ds.Constructors {
		constructors.rows = append(constructors.rows, []interface{}{c.ID, c.Ref, c.Name, c.Nationality})
	}

	drivers := copyTable{name: "f1_drivers", columns: []string{"driver_id", "driver_ref", "code", "forename", "surname", "dob", "nationality"}}
	for _, d := range ds.Drivers {
		drivers.rows = append(drivers.rows, []interface{}{d.ID, d.Ref, d.Code, d.Forename, d.Surname, d.DOB, d.Nationality})
	}

	races := copyTable{name: "f1_races", columns: []string{"race_id", "year", "round", "circuit_id", "name", "date"}}
	for _, race := range ds.Races {
		races.rows = append(races.rows, []interface{}{race.ID, race.Year, race.Round, race.CircuitID, race.Name, nullableDate(race.Date)})
	}

	statuses := copyTable{name: "f1_status", columns: []string{"status_id", "status"}}
	for _, s := range ds.Statuses {
		statuses.rows = append(statuses.rows, []interface{}{s.ID, s.Status})
	}

	results := copyTable{name: "f1_results", columns: []string{
		"result_id", "race_id", "driver_id", "constructor_id", "grid", "position", "position_order",
		"points", "laps", "milliseconds", "fastest_lap_rank", "status_id",
	}}
	for _, res := range ds.Results {
		results.rows = append(results.rows, []interface{}{
			res.ID, res.RaceID, res.DriverID, res.ConstructorID, res.Grid, res.Position, res.PositionOrder,
			numeric(res.Points), res.Laps, res.Milliseconds, res.FastestLapRank, res.StatusID,
		})
	}

	laps := copyTable{name: "f1_lap_times", columns: []string{"race_id", "driver_id", "lap", "position", "milliseconds"}}
	laps.rows = make([][]interface{}, 0, len(ds.LapTimes))
	for _, l := range ds.LapTimes {
		laps.rows = append(laps.rows, []interface{}{l.RaceID, l.DriverID, l.Lap, l.Position, l.Milliseconds})
	}

	stops := copyTable{name: "f1_pit_stops", columns: []string{"race_id", "driver_id", "stop", "lap", "milliseconds"}}
	for _, p := range ds.PitStops {
		stops.rows = append(stops.rows, []interface{}{p.RaceID, p.DriverID, p.Stop, p.Lap, p.Milliseconds})
	}

	return []copyTable{circuits, constructors, drivers, races, statuses, results, laps, stops}
}

// numeric converts d to a pgtype.Numeric without going through float64
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Load reads every f1_* table into a new Dataset
func (r *PostgresDatasetRepository) Load(ctx context.Context) (*dataset.Dataset, error) {
	ds := &dataset.Dataset{}
	pool := r.db.GetPool()

	var err error
	if ds.Circuits, err = queryAll(ctx, pool, `
		SELECT circuit_id, circuit_ref, name, location, country, lat, lng FROM f1_circuits ORDER BY circuit_id`,
		func(row pgx.Rows, c *models.Circuit) error {
			return row.Scan(&c.ID, &c.Ref, &c.Name, &c.Location, &c.Country, &c.Lat, &c.Lng)
		}); err != nil {
		return nil, err
	}

	if ds.Constructors, err = queryAll(ctx, pool, `
		SELECT constructor_id, constructor_ref, name, nationality FROM f1_constructors ORDER BY constructor_id`,
		func(row pgx.Rows, c *models.Constructor) error {
			return row.Scan(&c.ID, &c.Ref, &c.Name, &c.Nationality)
		}); err != nil {
		return nil, err
	}

	if ds.Drivers, err = queryAll(ctx, pool, `
		SELECT driver_id, driver_ref, code, forename, surname, dob, nationality FROM f1_drivers ORDER BY driver_id`,
		func(row pgx.Rows, d *models.Driver) error {
			return row.Scan(&d.ID, &d.Ref, &d.Code, &d.Forename, &d.Surname, &d.DOB, &d.Nationality)
		}); err != nil {
		return nil, err
	}

	if ds.Races, err = queryAll(ctx, pool, `
		SELECT race_id, year, round, circuit_id, name, date FROM f1_races ORDER BY race_id`,
		func(row pgx.Rows, race *models.Race) error {
			var date *time.Time
			if err := row.Scan(&race.ID, &race.Year, &race.Round, &race.CircuitID, &race.Name, &date); err != nil {
				return err
			}
			if date != nil {
				race.Date = *date
			}
			return nil
		}); err != nil {
		return nil, err
	}

	if ds.Statuses, err = queryAll(ctx, pool, `
		SELECT status_id, status FROM f1_status ORDER BY status_id`,
		func(row pgx.Rows, s *models.Status) error {
			return row.Scan(&s.ID, &s.Status)
		}); err != nil {
		return nil, err
	}

	if ds.Results, err = queryAll(ctx, pool, `
		SELECT result_id, race_id, driver_id, constructor_id, grid, position, position_order,
		       points::text, laps, milliseconds, fastest_lap_rank, status_id
		FROM f1_results ORDER BY result_id`,
		func(row pgx.Rows, res *models.Result) error {
			var points string
			if err := row.Scan(
				&res.ID, &res.RaceID, &res.DriverID, &res.ConstructorID, &res.Grid, &res.Position,
				&res.PositionOrder, &points, &res.Laps, &res.Milliseconds, &res.FastestLapRank, &res.StatusID,
			); err != nil {
				return err
			}
			pts, err := decimal.NewFromString(points)
			if err != nil {
				return fmt.Errorf("%w: points %q", models.ErrInvalidRecord, points)
			}
			res.Points = pts
			return nil
		}); err != nil {
		return nil, err
	}

	if ds.LapTimes, err = queryAll(ctx, pool, `
		SELECT race_id, driver_id, lap, position, milliseconds FROM f1_lap_times`,
		func(row pgx.Rows, l *models.LapTime) error {
			return row.Scan(&l.RaceID, &l.DriverID, &l.Lap, &l.Position, &l.Milliseconds)
		}); err != nil {
		return nil, err
	}

	if ds.PitStops, err = queryAll(ctx, pool, `
		SELECT race_id, driver_id, stop, lap, milliseconds FROM f1_pit_stops`,
		func(row pgx.Rows, p *models.PitStop) error {
			return row.Scan(&p.RaceID, &p.DriverID, &p.Stop, &p.Lap, &p.Milliseconds)
		}); err != nil {
		return nil, err
	}

	return ds, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryAll[T any](ctx context.Context, q querier, query string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
