package aggregate

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lox/crashlens/internal/models"
)

// Condition is one predicate-gated counter of a cross-tabulation.
type Condition struct {
	Label string
	Match func(models.CrashRecord) bool
}

// CrossTabRow holds one primary group with its total member count and one
// conditional count per Condition, aligned with the conds argument.
type CrossTabRow struct {
	Key    sql.NullString
	Total  int
	Counts []int
}

// CrossTab partitions records by one dimension and computes all conditional
// counts in a single pass over the record set; cost stays linear in records
// regardless of how many conditions are requested.
func CrossTab(records []models.CrashRecord, dim Dimension, conds []Condition) ([]CrossTabRow, error) {
	if !validDimension(dim) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
	}

	groups := make(map[string]*CrossTabRow)
	var order []string

	for _, r := range records {
		v := dimensionValue(r, dim)
		mk := mapKey([]sql.NullString{v})

		row, ok := groups[mk]
		if !ok {
			row = &CrossTabRow{Key: v, Counts: make([]int, len(conds))}
			groups[mk] = row
			order = append(order, mk)
		}
		row.Total++
		for i, c := range conds {
			if c.Match(r) {
				row.Counts[i]++
			}
		}
	}

	rows := make([]CrossTabRow, 0, len(order))
	for _, mk := range order {
		rows = append(rows, *groups[mk])
	}
	return rows, nil
}

// LightContains matches records whose light-condition description contains
// the substring (case-sensitive). A NULL light condition never matches.
func LightContains(substr string) Condition {
	return Condition{
		Label: substr,
		Match: func(r models.CrashRecord) bool {
			return r.LightCondition.Valid && strings.Contains(r.LightCondition.String, substr)
		},
	}
}

// DaylightVsDark is the standard road-surface breakdown by lighting.
var DaylightVsDark = []Condition{
	LightContains("Daylight"),
	LightContains("Dark"),
}
