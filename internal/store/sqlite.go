package store

import (
	"database/sql"
	"fmt"

	"github.com/lox/crashlens/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertCrash(c models.CrashRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO crashes (report_number, report_seq, crash_date, road_condition, weather_condition, light_condition,
		    citation_issued, trafficway, access_control, fatality_count, injury_count, towed, hazmat_released,
		    severity_weight, time_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ReportNumber, c.ReportSeq, c.CrashDate, c.RoadCondition, c.WeatherCondition, c.LightCondition,
		c.CitationIssued, c.Trafficway, c.AccessControl, c.FatalityCount, c.InjuryCount, c.Towed, c.HazmatReleased,
		c.SeverityWeight, c.TimeWeight)
	return err
}

// GetAllCrashes returns the full record set ordered by insertion id. One
// pipeline run aggregates over a single snapshot from this call; the rows are
// never mutated downstream.
func (s *Store) GetAllCrashes() ([]models.CrashRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, report_number, report_seq, crash_date, road_condition, weather_condition, light_condition,
		       citation_issued, trafficway, access_control, fatality_count, injury_count, towed, hazmat_released,
		       severity_weight, time_weight, created_at
		FROM crashes
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crashes []models.CrashRecord
	for rows.Next() {
		var c models.CrashRecord
		if err := rows.Scan(&c.ID, &c.ReportNumber, &c.ReportSeq, &c.CrashDate, &c.RoadCondition, &c.WeatherCondition,
			&c.LightCondition, &c.CitationIssued, &c.Trafficway, &c.AccessControl, &c.FatalityCount, &c.InjuryCount,
			&c.Towed, &c.HazmatReleased, &c.SeverityWeight, &c.TimeWeight, &c.CreatedAt); err != nil {
			return nil, err
		}
		crashes = append(crashes, c)
	}
	return crashes, rows.Err()
}

func (s *Store) CountCrashes() (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM crashes`).Scan(&count)
	return count, err
}

var conditionTextColumns = []string{
	"road_condition",
	"weather_condition",
	"light_condition",
	"citation_issued",
	"trafficway",
	"access_control",
}

// NormalizeConditionText replaces embedded line breaks in the free-text
// condition columns with spaces and trims surrounding whitespace, in place.
// CRLF pairs collapse to a single space, matching textutil.CleanLabel, so a
// repaired row groups with the same label cleaned at import time. Labels that
// are empty after cleaning become NULL, again matching import. Running it
// twice is the same as running it once. Returns the number of rows touched
// across all columns.
func (s *Store) NormalizeConditionText() (int64, error) {
	var total int64
	for _, col := range conditionTextColumns {
		res, err := s.db.Exec(fmt.Sprintf(`
			UPDATE crashes
			SET %[1]s = TRIM(REPLACE(REPLACE(REPLACE(%[1]s, char(13)||char(10), ' '), char(13), ' '), char(10), ' '))
			WHERE %[1]s IS NOT NULL
			  AND %[1]s != TRIM(REPLACE(REPLACE(REPLACE(%[1]s, char(13)||char(10), ' '), char(13), ' '), char(10), ' '))
		`, col))
		if err != nil {
			return total, fmt.Errorf("normalize %s: %w", col, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("normalize %s: rows affected: %w", col, err)
		}
		total += n

		res, err = s.db.Exec(fmt.Sprintf(`UPDATE crashes SET %[1]s = NULL WHERE %[1]s = ''`, col))
		if err != nil {
			return total, fmt.Errorf("null empty %s: %w", col, err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("null empty %s: rows affected: %w", col, err)
		}
		total += n
	}
	return total, nil
}

// ReplaceConditionSummary rebuilds the condition_summary relation from
// scratch inside one transaction. Prior content is discarded, never merged.
func (s *Store) ReplaceConditionSummary(rows []models.ConditionSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin summary tx: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM condition_summary`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear condition_summary: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO condition_summary (year, month, road_condition, weather_condition, light_condition,
		    crash_count, fatalities, injuries, avg_severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare summary insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Year, r.Month, r.RoadCondition, r.WeatherCondition, r.LightCondition,
			r.CrashCount, r.Fatalities, r.Injuries, r.AvgSeverity); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert summary row: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetConditionSummary() ([]models.ConditionSummary, error) {
	rows, err := s.db.Query(`
		SELECT year, month, road_condition, weather_condition, light_condition,
		       crash_count, fatalities, injuries, avg_severity
		FROM condition_summary
		ORDER BY year, month, road_condition, weather_condition, light_condition
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.ConditionSummary
	for rows.Next() {
		var cs models.ConditionSummary
		if err := rows.Scan(&cs.Year, &cs.Month, &cs.RoadCondition, &cs.WeatherCondition, &cs.LightCondition,
			&cs.CrashCount, &cs.Fatalities, &cs.Injuries, &cs.AvgSeverity); err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
