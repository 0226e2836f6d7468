package models

import (
	"database/sql"
	"time"
)

// CrashRecord is one cleaned crash incident as stored in the crashes table.
// (ReportNumber, ReportSeq) is the upstream natural key; it is indexed but
// not enforced unique here, deduplication belongs to upstream cleaning.
type CrashRecord struct {
	ID               int64
	ReportNumber     string
	ReportSeq        int64
	CrashDate        time.Time
	RoadCondition    sql.NullString
	WeatherCondition sql.NullString
	LightCondition   sql.NullString
	CitationIssued   sql.NullString
	Trafficway       sql.NullString
	AccessControl    sql.NullString
	FatalityCount    int64
	InjuryCount      int64
	Towed            bool
	HazmatReleased   bool
	SeverityWeight   int64
	TimeWeight       int64
	CreatedAt        time.Time
}

// ConditionSummary is one row of the materialized condition_summary relation
// consumed by external visualization tooling. The relation is rebuilt
// wholesale on every refresh.
type ConditionSummary struct {
	Year             int
	Month            int
	RoadCondition    sql.NullString
	WeatherCondition sql.NullString
	LightCondition   sql.NullString
	CrashCount       int64
	Fatalities       int64
	Injuries         int64
	AvgSeverity      float64
}
