package report

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lox/crashlens/internal/models"
)

func label(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func crash(road, weather, light string, fatalities, injuries int64) models.CrashRecord {
	rec := models.CrashRecord{
		CrashDate:      time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		FatalityCount:  fatalities,
		InjuryCount:    injuries,
		SeverityWeight: 1,
		TimeWeight:     1,
	}
	if road != "" {
		rec.RoadCondition = label(road)
	}
	if weather != "" {
		rec.WeatherCondition = label(weather)
	}
	if light != "" {
		rec.LightCondition = label(light)
	}
	return rec
}

func TestByCategory_Road(t *testing.T) {
	records := []models.CrashRecord{
		crash("Wet", "", "", 1, 0),
		crash("Ice", "", "", 0, 2),
		crash("Ice", "", "", 1, 1),
		crash("Ice", "", "", 0, 0),
		crash("Wet", "", "", 0, 3),
	}

	rows, err := ByCategory(records, CategoryRoad)
	if err != nil {
		t.Fatalf("ByCategory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Condition.String != "Ice" || rows[0].CrashCount != 3 {
		t.Errorf("rows[0] = %q/%d, want Ice/3 (count desc)", rows[0].Condition.String, rows[0].CrashCount)
	}
	if rows[0].Injuries != 3 {
		t.Errorf("Ice injuries = %d, want 3", rows[0].Injuries)
	}
	if rows[1].Fatalities != 1 {
		t.Errorf("Wet fatalities = %d, want 1", rows[1].Fatalities)
	}
}

func TestByCategory_AllCategories(t *testing.T) {
	records := []models.CrashRecord{crash("Dry", "Clear", "Daylight", 0, 0)}
	for _, cat := range []Category{CategoryRoad, CategoryWeather, CategoryLight} {
		rows, err := ByCategory(records, cat)
		if err != nil {
			t.Fatalf("ByCategory(%s): %v", cat, err)
		}
		if len(rows) != 1 {
			t.Errorf("ByCategory(%s) rows = %d, want 1", cat, len(rows))
		}
	}
}

func TestByCategory_UnknownCategory(t *testing.T) {
	_, err := ByCategory(nil, "FOG")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestByCategory_EmptyInput(t *testing.T) {
	rows, err := ByCategory(nil, CategoryWeather)
	if err != nil {
		t.Fatalf("ByCategory: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestPrevalence(t *testing.T) {
	records := []models.CrashRecord{
		crash("Ice", "Clear", "Daylight", 2, 0),
		crash("Ice", "Snow", "Dark - No Lights", 1, 0),
		crash("Dry", "Clear", "Daylight", 1, 0),
		crash("Dry", "Rain", "Dark - Lights On", 0, 0),
	}

	rows := Prevalence(records, DefaultFactors)
	if len(rows) != len(DefaultFactors) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(DefaultFactors))
	}

	byName := make(map[string]FactorRow)
	for _, r := range rows {
		byName[r.Name] = r
	}

	ice := byName["ice road conditions"]
	if ice.Crashes != 2 {
		t.Errorf("ice crashes = %d, want 2", ice.Crashes)
	}
	if ice.PrevalencePct != 50.00 {
		t.Errorf("ice prevalence = %v, want 50.00", ice.PrevalencePct)
	}
	if ice.FatalitySharePct != 75.00 {
		t.Errorf("ice fatality share = %v, want 75.00 (3 of 4)", ice.FatalitySharePct)
	}

	dark := byName["dark conditions"]
	if dark.Crashes != 2 {
		t.Errorf("dark crashes = %d, want 2", dark.Crashes)
	}
	if dark.FatalitySharePct != 25.00 {
		t.Errorf("dark fatality share = %v, want 25.00", dark.FatalitySharePct)
	}
}

func TestPrevalence_ZeroFatalities(t *testing.T) {
	records := []models.CrashRecord{
		crash("Ice", "Snow", "Dark - No Lights", 0, 1),
		crash("Wet", "Rain", "Daylight", 0, 0),
	}

	for _, row := range Prevalence(records, DefaultFactors) {
		if row.FatalitySharePct != 0 {
			t.Errorf("factor %q fatality share = %v, want 0 with no fatalities", row.Name, row.FatalitySharePct)
		}
	}
}

func TestPrevalence_EmptyInput(t *testing.T) {
	if rows := Prevalence(nil, DefaultFactors); len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
}

func TestRiskByConditions_MinimumSupport(t *testing.T) {
	heavy := crash("Ice", "Snow", "", 1, 0)
	heavy.SeverityWeight = 5
	heavy.TimeWeight = 2
	heavy2 := crash("Ice", "Snow", "", 0, 1)
	heavy2.SeverityWeight = 3
	heavy2.TimeWeight = 2
	lone := crash("Wet", "Rain", "", 0, 0)

	rows, err := RiskByConditions([]models.CrashRecord{heavy, heavy2, lone})
	if err != nil {
		t.Fatalf("RiskByConditions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (single-crash group excluded)", len(rows))
	}
	row := rows[0]
	if row.RoadCondition.String != "Ice" || row.WeatherCondition.String != "Snow" {
		t.Errorf("group = %q/%q, want Ice/Snow", row.RoadCondition.String, row.WeatherCondition.String)
	}
	if row.CrashCount != 2 {
		t.Errorf("CrashCount = %d, want 2", row.CrashCount)
	}
	// (5*2 + 3*2) / 2 = 8
	if row.RiskScore != 8.00 {
		t.Errorf("RiskScore = %v, want 8.00", row.RiskScore)
	}
}

func TestRiskByConditions_OrderedByRiskDesc(t *testing.T) {
	mk := func(road string, sev int64, n int) []models.CrashRecord {
		var out []models.CrashRecord
		for i := 0; i < n; i++ {
			c := crash(road, "Clear", "", 0, 0)
			c.SeverityWeight = sev
			out = append(out, c)
		}
		return out
	}
	records := append(mk("Dry", 1, 3), mk("Ice", 5, 2)...)

	rows, err := RiskByConditions(records)
	if err != nil {
		t.Fatalf("RiskByConditions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].RoadCondition.String != "Ice" {
		t.Errorf("rows[0] = %q, want Ice (highest risk first)", rows[0].RoadCondition.String)
	}
}

func TestConditionLabel(t *testing.T) {
	if got := ConditionLabel(label("Wet")); got != "Wet" {
		t.Errorf("ConditionLabel = %q, want Wet", got)
	}
	if got := ConditionLabel(sql.NullString{}); got != "(unknown)" {
		t.Errorf("ConditionLabel(NULL) = %q, want (unknown)", got)
	}
}
