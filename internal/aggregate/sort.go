package aggregate

import (
	"database/sql"
	"sort"
	"strconv"
)

// SortByCrashCountDesc orders rows by crash_count descending, breaking ties
// on the grouping key so output is stable across runs.
func SortByCrashCountDesc(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CrashCount != rows[j].CrashCount {
			return rows[i].CrashCount > rows[j].CrashCount
		}
		return keyLess(rows[i].Key, rows[j].Key)
	})
}

// SortByFatalityRateDesc orders rows by fatality_rate descending, then by
// crash_count descending, then by key.
func SortByFatalityRateDesc(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FatalityRate != rows[j].FatalityRate {
			return rows[i].FatalityRate > rows[j].FatalityRate
		}
		if rows[i].CrashCount != rows[j].CrashCount {
			return rows[i].CrashCount > rows[j].CrashCount
		}
		return keyLess(rows[i].Key, rows[j].Key)
	})
}

// SortByKey orders rows by their natural grouping key, NULL values first
// within each position.
func SortByKey(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return keyLess(rows[i].Key, rows[j].Key)
	})
}

func keyLess(a, b []sql.NullString) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i].Valid != b[i].Valid {
			return !a[i].Valid // NULL sorts first
		}
		if a[i].String != b[i].String {
			return valueLess(a[i].String, b[i].String)
		}
	}
	return len(a) < len(b)
}

// valueLess compares numeric key values (year, month) numerically so month
// "2" sorts before "10", matching the SQL ordering of the summary relation.
// Condition text compares lexically.
func valueLess(a, b string) bool {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return a < b
}
