package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/crashlens/internal/models"
	"github.com/lox/crashlens/internal/report"
	"github.com/lox/crashlens/internal/store"
)

func setupTestServer(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.New(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s, NewServer(s, "0").Handler()
}

func seedCrashes(t *testing.T, s *store.Store) {
	t.Helper()

	records := []models.CrashRecord{
		{ReportNumber: "23-001", CrashDate: time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
			RoadCondition:  sql.NullString{String: "Ice", Valid: true},
			LightCondition: sql.NullString{String: "Daylight", Valid: true},
			FatalityCount:  1, SeverityWeight: 5, TimeWeight: 1},
		{ReportNumber: "23-002", CrashDate: time.Date(2023, 5, 16, 0, 0, 0, 0, time.UTC),
			RoadCondition:  sql.NullString{String: "Ice", Valid: true},
			LightCondition: sql.NullString{String: "Dark - No Lights", Valid: true},
			InjuryCount:    2, SeverityWeight: 3, TimeWeight: 1},
		{ReportNumber: "23-003", CrashDate: time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC),
			RoadCondition:  sql.NullString{String: "Wet", Valid: true},
			SeverityWeight: 1, TimeWeight: 1},
	}
	for _, rec := range records {
		if err := s.InsertCrash(rec); err != nil {
			t.Fatalf("InsertCrash: %v", err)
		}
	}
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestHandleHealth(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	w := get(t, h, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["crashes"] != float64(3) {
		t.Errorf("crashes = %v, want 3", body["crashes"])
	}
}

func TestHandleReport(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	w := get(t, h, "/api/report?category=ROAD")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var rows []conditionRowView
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Condition != "Ice" || rows[0].CrashCount != 2 {
		t.Errorf("rows[0] = %+v, want Ice with 2 crashes first", rows[0])
	}
	if rows[0].Fatalities != 1 || rows[0].Injuries != 2 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

func TestHandleReport_UnknownCategory(t *testing.T) {
	_, h := setupTestServer(t)

	w := get(t, h, "/api/report?category=FOG")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleRisk(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	w := get(t, h, "/api/risk")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var rows []riskRowView
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (only Ice pair meets minimum support)", len(rows))
	}
	if rows[0].RoadCondition != "Ice" || rows[0].WeatherCondition != "(unknown)" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	// (5*1 + 3*1) / 2 = 4
	if rows[0].RiskScore != 4.00 {
		t.Errorf("RiskScore = %v, want 4.00", rows[0].RiskScore)
	}
}

func TestHandleCrossTab(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	w := get(t, h, "/api/crosstab")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var rows []crossTabRowView
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	ice := rows[0]
	if ice.RoadCondition != "Ice" || ice.Total != 2 || ice.Daylight != 1 || ice.Dark != 1 {
		t.Errorf("rows[0] = %+v", ice)
	}
	wet := rows[1]
	if wet.Total != 1 || wet.Daylight != 0 || wet.Dark != 0 {
		t.Errorf("rows[1] = %+v (NULL light counts toward neither column)", wet)
	}
}

func TestHandleSummary(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	if _, err := report.NewMaterializer(s).Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	w := get(t, h, "/api/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var rows []summaryRowView
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Year != 2023 || rows[0].Month != 5 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

func TestHandleFactors(t *testing.T) {
	s, h := setupTestServer(t)
	seedCrashes(t, s)

	w := get(t, h, "/api/factors")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var rows []report.FactorRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != len(report.DefaultFactors) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(report.DefaultFactors))
	}
}
