// Package dates implements the local-calendar day bucketing the rest of the
// service depends on. All day math runs on local midnights; serializing
// through UTC is deliberately avoided because it can shift the apparent day
// near midnight in non-UTC zones.
package dates

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const keyLayout = "2006-01-02"

// Normalize strips the time of day, returning 00:00:00 of the same calendar
// day in the instant's own location. Idempotent.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Key renders a day as YYYY-MM-DD from the instant's own calendar components.
func Key(t time.Time) string {
	return t.Format(keyLayout)
}

// ParseKey is the inverse of Key: it splits a YYYY-MM-DD string and builds
// local midnight from the three integer components. Key(ParseKey(s)) == s for
// every valid s.
func ParseKey(s string) (time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date key %q", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in date key %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("invalid month in date key %q", s)
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid day in date key %q", s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local), nil
}

// WeekOf returns the Monday-to-Sunday span containing d, every element
// normalized to local midnight, in ascending order. The Monday start is
// load-bearing for weekly-habit semantics and must not default to Sunday.
func WeekOf(d time.Time) []time.Time {
	day := Normalize(d)
	dow := int(day.Weekday()) // 0=Sunday .. 6=Saturday
	offset := 1 - dow
	if dow == 0 {
		offset = -6
	}
	monday := Normalize(day.AddDate(0, 0, offset))
	week := make([]time.Time, 7)
	for i := range week {
		// renormalize: AddDate across a DST change can land off midnight
		week[i] = Normalize(monday.AddDate(0, 0, i))
	}
	return week
}

// DayDiff returns the whole-day distance a-b between two canonical days,
// rounded so that DST-induced 23/25 hour days still count as one.
func DayDiff(a, b time.Time) int {
	return int(math.Round(a.Sub(b).Hours() / 24))
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Key(a) == Key(b)
}

// MidnightAt builds local midnight for an explicit year/month/day.
func MidnightAt(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// DaysIn returns the number of calendar days in the given month.
func DaysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
}
