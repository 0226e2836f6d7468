// Package aggregate re-expresses the grouped crash-analysis queries as
// explicit in-memory grouping and reduction over a record snapshot. NULL
// categorical values form their own group (equal only to other NULLs), the
// same partitioning SQL GROUP BY produces.
package aggregate

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lox/crashlens/internal/models"
)

// Dimension is a categorical field records can be grouped by.
type Dimension string

const (
	DimYear             Dimension = "year"
	DimMonth            Dimension = "month"
	DimRoadCondition    Dimension = "road_condition"
	DimWeatherCondition Dimension = "weather_condition"
	DimLightCondition   Dimension = "light_condition"
	DimCitationIssued   Dimension = "citation_issued"
	DimTrafficway       Dimension = "trafficway"
	DimAccessControl    Dimension = "access_control"
)

// Metric is a per-group derived value.
type Metric string

const (
	MetricCount           Metric = "count"
	MetricTotalFatalities Metric = "total_fatalities"
	MetricTotalInjuries   Metric = "total_injuries"
	MetricAvgSeverity     Metric = "avg_severity"
	MetricFatalityRate    Metric = "fatality_rate"
	MetricRiskScore       Metric = "risk_score"
)

var (
	ErrInvalidDimension = errors.New("aggregate: invalid dimension")
	ErrInvalidMetric    = errors.New("aggregate: invalid metric")
)

// Row is one group's summary. Key holds the grouping values aligned with the
// groupBy order; an invalid NullString is the NULL bucket. Only requested
// metrics are populated, the rest stay zero.
type Row struct {
	Key             []sql.NullString
	CrashCount      int
	TotalFatalities int64
	TotalInjuries   int64
	AvgSeverity     float64
	FatalityRate    float64
	RiskScore       float64
}

// Options tunes an aggregation pass.
type Options struct {
	// MinCount drops groups whose crash_count falls below the threshold
	// (minimum-support filter). Zero keeps everything.
	MinCount int
}

type group struct {
	key          []sql.NullString
	count        int
	fatalities   int64
	injuries     int64
	severitySum  int64
	weightedRisk int64 // sum of severity_weight * time_weight
}

// Aggregate partitions records by the requested dimensions and reduces each
// group to the requested metrics. Rows come out in first-seen input order;
// ordering for presentation is the caller's job (see the Sort helpers).
// Zero records in means zero rows out, not an error.
func Aggregate(records []models.CrashRecord, groupBy []Dimension, metrics []Metric, opts Options) ([]Row, error) {
	if len(groupBy) == 0 {
		return nil, fmt.Errorf("%w: empty group-by list", ErrInvalidDimension)
	}
	for _, d := range groupBy {
		if !validDimension(d) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, d)
		}
	}
	requested := make(map[Metric]bool, len(metrics))
	for _, m := range metrics {
		switch m {
		case MetricCount, MetricTotalFatalities, MetricTotalInjuries,
			MetricAvgSeverity, MetricFatalityRate, MetricRiskScore:
			requested[m] = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, m)
		}
	}

	groups := make(map[string]*group)
	var order []string

	for _, r := range records {
		key := make([]sql.NullString, len(groupBy))
		for i, d := range groupBy {
			key[i] = dimensionValue(r, d)
		}
		mk := mapKey(key)

		g, ok := groups[mk]
		if !ok {
			g = &group{key: key}
			groups[mk] = g
			order = append(order, mk)
		}
		g.count++
		g.fatalities += r.FatalityCount
		g.injuries += r.InjuryCount
		g.severitySum += r.SeverityWeight
		g.weightedRisk += r.SeverityWeight * r.TimeWeight
	}

	rows := make([]Row, 0, len(order))
	for _, mk := range order {
		g := groups[mk]
		if opts.MinCount > 0 && g.count < opts.MinCount {
			continue
		}

		row := Row{Key: g.key}
		if requested[MetricCount] {
			row.CrashCount = g.count
		}
		if requested[MetricTotalFatalities] {
			row.TotalFatalities = g.fatalities
		}
		if requested[MetricTotalInjuries] {
			row.TotalInjuries = g.injuries
		}
		if requested[MetricAvgSeverity] {
			row.AvgSeverity = Round2(float64(g.severitySum) / float64(g.count))
		}
		if requested[MetricFatalityRate] {
			row.FatalityRate = Round2(float64(g.fatalities) / float64(g.count) * 100)
		}
		if requested[MetricRiskScore] {
			row.RiskScore = Round2(float64(g.weightedRisk) / float64(g.count))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func validDimension(d Dimension) bool {
	switch d {
	case DimYear, DimMonth, DimRoadCondition, DimWeatherCondition, DimLightCondition,
		DimCitationIssued, DimTrafficway, DimAccessControl:
		return true
	}
	return false
}

func dimensionValue(r models.CrashRecord, d Dimension) sql.NullString {
	switch d {
	case DimYear:
		return sql.NullString{String: strconv.Itoa(r.CrashDate.Year()), Valid: true}
	case DimMonth:
		return sql.NullString{String: strconv.Itoa(int(r.CrashDate.Month())), Valid: true}
	case DimRoadCondition:
		return r.RoadCondition
	case DimWeatherCondition:
		return r.WeatherCondition
	case DimLightCondition:
		return r.LightCondition
	case DimCitationIssued:
		return r.CitationIssued
	case DimTrafficway:
		return r.Trafficway
	case DimAccessControl:
		return r.AccessControl
	}
	return sql.NullString{}
}

// mapKey encodes a key tuple so that NULL and empty string stay distinct.
// Condition text never contains NUL bytes after normalization.
func mapKey(key []sql.NullString) string {
	var b strings.Builder
	for _, v := range key {
		if v.Valid {
			b.WriteByte(1)
			b.WriteString(v.String)
		} else {
			b.WriteByte(0)
		}
		b.WriteByte('\x00')
	}
	return b.String()
}

// Round2 rounds to two decimal places, half away from zero. All ratio
// metrics go through this; callers wanting exact values request raw sums and
// counts instead.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
