package database

// schema holds the DDL for the Ergast tables and the run log.
// Foreign keys are omitted because the public export contains dangling rows.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS f1_circuits (
		circuit_id  INTEGER PRIMARY KEY,
		circuit_ref TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		location    TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		lat         DOUBLE PRECISION NOT NULL DEFAULT 0,
		lng         DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS f1_constructors (
		constructor_id  INTEGER PRIMARY KEY,
		constructor_ref TEXT NOT NULL DEFAULT '',
		name            TEXT NOT NULL,
		nationality     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS f1_drivers (
		driver_id   INTEGER PRIMARY KEY,
		driver_ref  TEXT NOT NULL DEFAULT '',
		code        TEXT NOT NULL DEFAULT '',
		forename    TEXT NOT NULL DEFAULT '',
		surname     TEXT NOT NULL,
		dob         DATE,
		nationality TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS f1_races (
		race_id    INTEGER PRIMARY KEY,
		year       INTEGER NOT NULL,
		round      INTEGER NOT NULL,
		circuit_id INTEGER NOT NULL,
		name       TEXT NOT NULL,
		date       DATE
	)`,
	`CREATE TABLE IF NOT EXISTS f1_status (
		status_id INTEGER PRIMARY KEY,
		status    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS f1_results (
		result_id        INTEGER PRIMARY KEY,
		race_id          INTEGER NOT NULL,
		driver_id        INTEGER NOT NULL,
		constructor_id   INTEGER NOT NULL,
		grid             INTEGER NOT NULL,
		position         INTEGER,
		position_order   INTEGER NOT NULL,
		points           NUMERIC(6, 2) NOT NULL,
		laps             INTEGER NOT NULL,
		milliseconds     INTEGER,
		fastest_lap_rank INTEGER,
		status_id        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_f1_results_race ON f1_results (race_id)`,
	`CREATE TABLE IF NOT EXISTS f1_lap_times (
		race_id      INTEGER NOT NULL,
		driver_id    INTEGER NOT NULL,
		lap          INTEGER NOT NULL,
		position     INTEGER NOT NULL,
		milliseconds INTEGER NOT NULL,
		PRIMARY KEY (race_id, driver_id, lap)
	)`,
	`CREATE TABLE IF NOT EXISTS f1_pit_stops (
		race_id      INTEGER NOT NULL,
		driver_id    INTEGER NOT NULL,
		stop         INTEGER NOT NULL,
		lap          INTEGER NOT NULL,
		milliseconds INTEGER NOT NULL,
		PRIMARY KEY (race_id, driver_id, stop)
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id          UUID PRIMARY KEY,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		source      TEXT NOT NULL,
		summary     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_runs_started ON analysis_runs (started_at DESC)`,
}
