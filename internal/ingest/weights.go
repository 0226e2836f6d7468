package ingest

import "time"

// severityWeight scores crash outcome severity for the composite risk
// metric: fatal crashes weigh 5, injury crashes 3, tow-aways 2, the rest 1.
func severityWeight(fatalities, injuries int64, towed bool) int64 {
	switch {
	case fatalities > 0:
		return 5
	case injuries > 0:
		return 3
	case towed:
		return 2
	default:
		return 1
	}
}

// timeWeight scores the report date: weekend-adjacent days (Fri-Sun) carry
// double weight, matching the source dataset's scoring.
func timeWeight(date time.Time) int64 {
	switch date.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return 2
	default:
		return 1
	}
}
