// Package ingest loads cleaned crash extracts into the record store. It is a
// thin front end: rows are header-mapped, labels normalized, and weights
// assigned, but there is no schema-evolution or streaming machinery.
package ingest

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lox/crashlens/internal/metrics"
	"github.com/lox/crashlens/internal/models"
	"github.com/lox/crashlens/internal/store"
	"github.com/lox/crashlens/internal/textutil"
)

type Importer struct {
	store *store.Store
}

func NewImporter(store *store.Store) *Importer {
	return &Importer{store: store}
}

type ImportStats struct {
	Parsed      int64
	Stored      int64
	ParseErrors int64
}

// ImportFile loads a crash extract CSV from disk.
func (im *Importer) ImportFile(path string) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	return im.Import(f, "file", path)
}

// Import reads a header-mapped crash extract and stores each parseable row.
// Rows that fail to parse are counted and skipped, not fatal. Every call is
// recorded in the import_runs audit table.
func (im *Importer) Import(r io.Reader, source, location string) (ImportStats, error) {
	run, err := im.store.StartImportRun(source, location)
	if err != nil {
		return ImportStats{}, fmt.Errorf("start import run: %w", err)
	}

	stats, importErr := im.importRows(r, source)

	run.RecordsParsed = sql.NullInt64{Int64: stats.Parsed, Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: stats.Stored, Valid: true}
	run.ParseErrors = sql.NullInt64{Int64: stats.ParseErrors, Valid: true}
	run.Success = importErr == nil
	if importErr != nil {
		run.ErrorMessage = sql.NullString{String: importErr.Error(), Valid: true}
	}
	if err := im.store.CompleteImportRun(run); err != nil {
		log.Printf("ingest: complete import run: %v", err)
	}

	if importErr != nil {
		return stats, importErr
	}
	log.Printf("ingest: imported %d/%d records from %s (%d parse errors)",
		stats.Stored, stats.Parsed, location, stats.ParseErrors)
	return stats, nil
}

func (im *Importer) importRows(r io.Reader, source string) (ImportStats, error) {
	var stats ImportStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["report_number"]; !ok {
		return stats, fmt.Errorf("extract missing report_number column")
	}
	if _, ok := cols["crash_date"]; !ok {
		return stats, fmt.Errorf("extract missing crash_date column")
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.ParseErrors++
			metrics.ImportParseErrors.WithLabelValues(source).Inc()
			continue
		}
		stats.Parsed++

		rec, err := parseRecord(cols, row)
		if err != nil {
			stats.ParseErrors++
			metrics.ImportParseErrors.WithLabelValues(source).Inc()
			continue
		}

		if err := im.store.InsertCrash(rec); err != nil {
			return stats, fmt.Errorf("insert crash %s/%d: %w", rec.ReportNumber, rec.ReportSeq, err)
		}
		stats.Stored++
		metrics.CrashesImported.WithLabelValues(source).Inc()
	}

	return stats, nil
}

func parseRecord(cols map[string]int, row []string) (models.CrashRecord, error) {
	var rec models.CrashRecord

	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec.ReportNumber = strings.TrimSpace(field("report_number"))
	if rec.ReportNumber == "" {
		return rec, fmt.Errorf("empty report_number")
	}
	if seq := strings.TrimSpace(field("report_seq")); seq != "" {
		n, err := strconv.ParseInt(seq, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("parse report_seq %q: %w", seq, err)
		}
		rec.ReportSeq = n
	}

	date, err := parseDate(field("crash_date"))
	if err != nil {
		return rec, err
	}
	rec.CrashDate = date

	rec.RoadCondition = nullableLabel(field("road_condition"))
	rec.WeatherCondition = nullableLabel(field("weather_condition"))
	rec.LightCondition = nullableLabel(field("light_condition"))
	rec.CitationIssued = nullableLabel(field("citation_issued"))
	rec.Trafficway = nullableLabel(field("trafficway"))
	rec.AccessControl = nullableLabel(field("access_control"))

	if rec.FatalityCount, err = parseCount(field("fatality_count")); err != nil {
		return rec, fmt.Errorf("fatality_count: %w", err)
	}
	if rec.InjuryCount, err = parseCount(field("injury_count")); err != nil {
		return rec, fmt.Errorf("injury_count: %w", err)
	}
	rec.Towed = parseFlag(field("towed"))
	rec.HazmatReleased = parseFlag(field("hazmat_released"))

	rec.SeverityWeight = severityWeight(rec.FatalityCount, rec.InjuryCount, rec.Towed)
	rec.TimeWeight = timeWeight(rec.CrashDate)

	return rec, nil
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable crash_date %q", s)
}

// nullableLabel cleans a free-text field; values that are empty after
// cleaning become NULL so they land in the explicit unknown bucket rather
// than a phantom empty-string group.
func nullableLabel(s string) sql.NullString {
	cleaned := textutil.CleanLabel(s)
	if cleaned == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: cleaned, Valid: true}
}

func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
