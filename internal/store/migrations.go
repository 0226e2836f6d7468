package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial crashes schema",
		SQL: `
CREATE TABLE IF NOT EXISTS crashes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_number TEXT NOT NULL,
    report_seq INTEGER NOT NULL DEFAULT 0,
    crash_date DATE NOT NULL,
    road_condition TEXT,
    weather_condition TEXT,
    light_condition TEXT,
    citation_issued TEXT,
    trafficway TEXT,
    access_control TEXT,
    fatality_count INTEGER NOT NULL DEFAULT 0,
    injury_count INTEGER NOT NULL DEFAULT 0,
    towed BOOLEAN NOT NULL DEFAULT FALSE,
    hazmat_released BOOLEAN NOT NULL DEFAULT FALSE,
    severity_weight INTEGER NOT NULL DEFAULT 1,
    time_weight INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_crashes_report ON crashes(report_number, report_seq);
CREATE INDEX IF NOT EXISTS idx_crashes_date ON crashes(crash_date);
CREATE INDEX IF NOT EXISTS idx_crashes_road ON crashes(road_condition);
CREATE INDEX IF NOT EXISTS idx_crashes_weather ON crashes(weather_condition);
CREATE INDEX IF NOT EXISTS idx_crashes_light ON crashes(light_condition);
`,
	},
	{
		Version:     2,
		Description: "Materialized condition summary for visualization tools",
		SQL: `
CREATE TABLE IF NOT EXISTS condition_summary (
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    road_condition TEXT,
    weather_condition TEXT,
    light_condition TEXT,
    crash_count INTEGER NOT NULL,
    fatalities INTEGER NOT NULL,
    injuries INTEGER NOT NULL,
    avg_severity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summary_year_month ON condition_summary(year, month);
`,
	},
	{
		Version:     3,
		Description: "Add import_runs audit table",
		SQL: `
CREATE TABLE IF NOT EXISTS import_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    source TEXT NOT NULL,
    location TEXT,
    records_parsed INTEGER,
    records_stored INTEGER,
    parse_errors INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
