package grid

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/dateutil"
)

// dateLayouts are tried in order for date strings that are not YYYYMMDD.
// Date-only values are UTC midnight; values with a time and no zone are
// read in the configured location.
var dateLayouts = []struct {
	layout string
	utc    bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02", true},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04:05", false},
}

// DefaultValue is the value an absent field takes in a column of type t.
func DefaultValue(t ColumnType) any {
	switch t {
	case TypeNumber:
		return 0.0
	case TypeDate:
		return nil
	case TypeBoolean:
		return false
	default:
		return ""
	}
}

// CoerceValue converts a raw value present in a row to column type t.
// Dates built from YYYYMMDD are midnight in loc.
func CoerceValue(t ColumnType, v any, loc *time.Location) any {
	switch t {
	case TypeNumber:
		return toNumber(v)
	case TypeDate:
		return toDate(v, loc)
	case TypeBoolean:
		return truthy(v)
	default:
		return toString(v)
	}
}

// CoerceRows shapes every raw row to exactly cols: each column's field is
// coerced when present and defaulted when absent; other keys are dropped.
func CoerceRows(cols []Column, rows []map[string]any, loc *time.Location) []Row {
	if loc == nil {
		loc = time.Local
	}

	out := make([]Row, len(rows))
	for i, raw := range rows {
		row := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := raw[c.Field]; ok {
				row[c.Field] = CoerceValue(c.Type, v, loc)
			} else {
				row[c.Field] = DefaultValue(c.Type)
			}
		}
		out[i] = row
	}
	return out
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0
		}
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, ok := parseFloatPrefix(n)
		if !ok {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return 0
}

// parseFloatPrefix reads the longest leading decimal number of s, ignoring
// leading white space, the way "12.5kg" reads as 12.5.
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	for _, inf := range []string{"Infinity", "+Infinity", "-Infinity"} {
		if strings.HasPrefix(s, inf) {
			if inf[0] == '-' {
				return math.Inf(-1), true
			}
			return math.Inf(1), true
		}
	}

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range values still carry a usable ±Inf.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func toDate(v any, loc *time.Location) any {
	switch d := v.(type) {
	case time.Time:
		return d
	case string:
		if d == "" {
			return nil
		}
		if t, ok := dateutil.DateFromDigits(d, loc); ok {
			return t
		}
		if t, ok := parseDate(d, loc); ok {
			return t
		}
	}
	return nil
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, l := range dateLayouts {
		in := loc
		if l.utc {
			in = time.UTC
		}
		if t, err := time.ParseInLocation(l.layout, s, in); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0 && !math.IsNaN(b)
	case int:
		return b != 0
	case int64:
		return b != 0
	case string:
		return b != ""
	case json.Number:
		return toNumber(b) != 0
	}
	return true
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case time.Time:
		return s.Format(time.RFC3339)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
