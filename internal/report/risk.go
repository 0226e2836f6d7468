package report

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/lox/crashlens/internal/aggregate"
	"github.com/lox/crashlens/internal/models"
)

// riskMinCount is the minimum-support threshold for the combined-condition
// risk ranking: single-crash groups are statistical noise and never appear.
const riskMinCount = 2

// RiskRow ranks one (road, weather) condition pair by composite risk.
type RiskRow struct {
	RoadCondition    sql.NullString
	WeatherCondition sql.NullString
	CrashCount       int
	RiskScore        float64
}

// RiskByConditions groups crashes by road and weather condition and ranks
// the pairs by risk score (mean severity_weight x time_weight), highest
// first. Groups with fewer than two crashes are excluded.
func RiskByConditions(records []models.CrashRecord) ([]RiskRow, error) {
	rows, err := aggregate.Aggregate(records,
		[]aggregate.Dimension{aggregate.DimRoadCondition, aggregate.DimWeatherCondition},
		[]aggregate.Metric{aggregate.MetricCount, aggregate.MetricRiskScore},
		aggregate.Options{MinCount: riskMinCount})
	if err != nil {
		return nil, fmt.Errorf("aggregate risk: %w", err)
	}

	result := make([]RiskRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, RiskRow{
			RoadCondition:    r.Key[0],
			WeatherCondition: r.Key[1],
			CrashCount:       r.CrashCount,
			RiskScore:        r.RiskScore,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RiskScore != result[j].RiskScore {
			return result[i].RiskScore > result[j].RiskScore
		}
		return result[i].CrashCount > result[j].CrashCount
	})
	return result, nil
}
