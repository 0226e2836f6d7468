package report

import (
	"strings"

	"github.com/lox/crashlens/internal/aggregate"
	"github.com/lox/crashlens/internal/models"
)

// Factor is a named risk-factor predicate. Factors are an explicit
// configuration list so new ones can be added without touching the
// computation below.
type Factor struct {
	Name  string
	Match func(models.CrashRecord) bool
}

// FactorRow reports one factor's share of the full record set.
type FactorRow struct {
	Name             string
	Crashes          int
	Fatalities       int64
	PrevalencePct    float64
	FatalitySharePct float64
}

// DefaultFactors is the standard risk-factor list used by the CLI and the
// report server.
var DefaultFactors = []Factor{
	{Name: "ice road conditions", Match: roadContains("Ice")},
	{Name: "wet road conditions", Match: roadContains("Wet")},
	{Name: "dark conditions", Match: func(r models.CrashRecord) bool {
		return r.LightCondition.Valid && strings.Contains(r.LightCondition.String, "Dark")
	}},
	{Name: "adverse weather", Match: func(r models.CrashRecord) bool {
		if !r.WeatherCondition.Valid {
			return false
		}
		w := r.WeatherCondition.String
		return strings.Contains(w, "Rain") || strings.Contains(w, "Snow") || strings.Contains(w, "Sleet")
	}},
}

func roadContains(substr string) func(models.CrashRecord) bool {
	return func(r models.CrashRecord) bool {
		return r.RoadCondition.Valid && strings.Contains(r.RoadCondition.String, substr)
	}
}

// Prevalence computes, for each factor over the whole record set, the share
// of crashes matching the factor and the share of all fatalities occurring
// under it. Zero denominators report zero rather than dividing; an empty
// record set yields an empty report.
func Prevalence(records []models.CrashRecord, factors []Factor) []FactorRow {
	if len(records) == 0 {
		return nil
	}

	var totalFatalities int64
	for _, r := range records {
		totalFatalities += r.FatalityCount
	}

	rows := make([]FactorRow, 0, len(factors))
	for _, f := range factors {
		var row FactorRow
		row.Name = f.Name
		for _, r := range records {
			if f.Match(r) {
				row.Crashes++
				row.Fatalities += r.FatalityCount
			}
		}
		row.PrevalencePct = aggregate.Round2(float64(row.Crashes) / float64(len(records)) * 100)
		if totalFatalities > 0 {
			row.FatalitySharePct = aggregate.Round2(float64(row.Fatalities) / float64(totalFatalities) * 100)
		}
		rows = append(rows, row)
	}
	return rows
}
