package grid

import (
	"cmp"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/dateutil"
)

// typeRank orders values of different types against each other.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	}
	return 5
}

// compareValues orders two coerced cell values for sorting. nil sorts
// first; values of different types order by typeRank.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		return compareBool(x, b.(bool))
	case float64:
		return cmp.Compare(x, b.(float64))
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return strings.Compare(toString(a), toString(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareToFilter compares a cell against a filter value, converting the
// filter value to the cell's type. ok is false when the values cannot be
// compared, which only "neq" treats as a match.
func compareToFilter(cell, want any, ignoreCase bool) (c int, ok bool) {
	if cell == nil || want == nil {
		if cell == nil && want == nil {
			return 0, true
		}
		return 0, false
	}

	switch x := cell.(type) {
	case float64:
		f, ok := filterNumber(want)
		if !ok {
			return 0, false
		}
		return cmp.Compare(x, f), true

	case time.Time:
		t, ok := filterTime(want, x.Location())
		if !ok {
			return 0, false
		}
		return x.Compare(t), true

	case bool:
		b, ok := filterBool(want)
		if !ok {
			return 0, false
		}
		return compareBool(x, b), true

	case string:
		s := toString(want)
		if ignoreCase {
			x, s = strings.ToLower(x), strings.ToLower(s)
		}
		return strings.Compare(x, s), true
	}
	return 0, false
}

func filterNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		return toNumber(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func filterTime(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if d, ok := dateutil.ParseYYYYMMDD(t, loc); ok {
			return d, true
		}
		if d, err := time.ParseInLocation("2006-01-02", t, loc); err == nil {
			return d, true
		}
		return parseDate(t, loc)
	}
	return time.Time{}, false
}

func filterBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		p, err := strconv.ParseBool(b)
		return p, err == nil
	case float64:
		return b != 0, true
	}
	return false, false
}
