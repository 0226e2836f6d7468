// Package report builds the named crash reports on top of the aggregate
// engine: per-category condition breakdowns, factor prevalence, combined
// condition risk ranking, and the materialized visualization summary.
package report

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lox/crashlens/internal/aggregate"
	"github.com/lox/crashlens/internal/models"
)

// Category names a condition dimension the breakdown report can be run for.
// The set is closed; anything else is an error rather than silent no output.
type Category string

const (
	CategoryRoad    Category = "ROAD"
	CategoryWeather Category = "WEATHER"
	CategoryLight   Category = "LIGHT"
)

var ErrUnknownCategory = errors.New("report: unknown category")

// ConditionRow is one condition's breakdown in a category report.
type ConditionRow struct {
	Condition   sql.NullString
	CrashCount  int
	Fatalities  int64
	Injuries    int64
	AvgSeverity float64
}

var categoryDimensions = map[Category]aggregate.Dimension{
	CategoryRoad:    aggregate.DimRoadCondition,
	CategoryWeather: aggregate.DimWeatherCondition,
	CategoryLight:   aggregate.DimLightCondition,
}

// ByCategory aggregates crashes by the selected condition dimension and
// returns rows ordered by crash_count descending.
func ByCategory(records []models.CrashRecord, cat Category) ([]ConditionRow, error) {
	dim, ok := categoryDimensions[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	rows, err := aggregate.Aggregate(records,
		[]aggregate.Dimension{dim},
		[]aggregate.Metric{
			aggregate.MetricCount,
			aggregate.MetricTotalFatalities,
			aggregate.MetricTotalInjuries,
			aggregate.MetricAvgSeverity,
		},
		aggregate.Options{})
	if err != nil {
		return nil, fmt.Errorf("aggregate by %s: %w", dim, err)
	}
	aggregate.SortByCrashCountDesc(rows)

	result := make([]ConditionRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, ConditionRow{
			Condition:   r.Key[0],
			CrashCount:  r.CrashCount,
			Fatalities:  r.TotalFatalities,
			Injuries:    r.TotalInjuries,
			AvgSeverity: r.AvgSeverity,
		})
	}
	return result, nil
}

// ConditionLabel renders a grouping value for display. NULL buckets stay in
// the data as NULL; only presentation relabels them.
func ConditionLabel(v sql.NullString) string {
	if !v.Valid {
		return "(unknown)"
	}
	return v.String
}
