// Package dateutil converts between time.Time and the compact YYYYMMDD
// strings the grid procedures take as parameters and return as dates.
package dateutil

import (
	"time"
)

// Layout is the YYYYMMDD layout.
const Layout = "20060102"

// FormatYYYYMMDD formats t as YYYYMMDD. The zero time yields "".
func FormatYYYYMMDD(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// ParseYYYYMMDD parses an exact 8-digit YYYYMMDD string in loc.
// Anything else, including out-of-range months or days, reports false.
func ParseYYYYMMDD(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateFromDigits builds a calendar date from an 8-digit YYYYMMDD string
// without range checks: an out-of-range month or day rolls over the way
// time.Date normalises it. ok is false unless s is exactly 8 ASCII digits.
func DateFromDigits(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	n := [8]int{}
	for i := 0; i < 8; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
		n[i] = int(c - '0')
	}
	year := n[0]*1000 + n[1]*100 + n[2]*10 + n[3]
	month := n[4]*10 + n[5]
	day := n[6]*10 + n[7]
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
}

// Clock supplies "now"; tests substitute a fixed instant.
type Clock func() time.Time

// Helpers computes relative YYYYMMDD values against a clock.
type Helpers struct {
	Now Clock
}

// NewHelpers returns Helpers bound to the wall clock.
func NewHelpers() Helpers {
	return Helpers{Now: time.Now}
}

func (h Helpers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Today returns the current date.
func (h Helpers) Today() string {
	return FormatYYYYMMDD(h.now())
}

// DaysAgo returns the date n days before today.
func (h Helpers) DaysAgo(n int) string {
	return FormatYYYYMMDD(h.now().AddDate(0, 0, -n))
}

// MonthsAgo returns the date n months before today.
func (h Helpers) MonthsAgo(n int) string {
	return FormatYYYYMMDD(subMonths(h.now(), n))
}

// YearsAgo returns the date n years before today.
func (h Helpers) YearsAgo(n int) string {
	return FormatYYYYMMDD(subMonths(h.now(), 12*n))
}

// LastDayOfMonth returns the last day of the month containing t, or of the
// current month when t is the zero time.
func (h Helpers) LastDayOfMonth(t time.Time) string {
	if t.IsZero() {
		t = h.now()
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return FormatYYYYMMDD(first.AddDate(0, 1, -1))
}

// FirstWeekdayOfMonth returns the first Monday–Friday day of the month
// containing t (current month for the zero time).
func (h Helpers) FirstWeekdayOfMonth(t time.Time) string {
	if t.IsZero() {
		t = h.now()
	}
	d := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return FormatYYYYMMDD(d)
}

// subMonths moves back n calendar months, clamping the day to the length of
// the target month (Mar 31 minus one month is Feb 28/29, not Mar 3).
func subMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, -n, 0)
	last := target.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}
