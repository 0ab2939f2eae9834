package dates

import (
	"testing"
	"time"
)

func TestKeyParseKeyRoundTrip(t *testing.T) {
	keys := []string{
		"2024-01-01",
		"2024-02-29",
		"2023-12-31",
		"2024-07-15",
		"1999-06-09",
	}
	for _, k := range keys {
		d, err := ParseKey(k)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", k, err)
		}
		if got := Key(d); got != k {
			t.Errorf("Key(ParseKey(%q)) = %q", k, got)
		}
	}
}

func TestParseKeyInvalid(t *testing.T) {
	for _, k := range []string{"", "2024", "2024-13-01", "2024-00-10", "2024-01-32", "abcd-ef-gh"} {
		if _, err := ParseKey(k); err == nil {
			t.Errorf("ParseKey(%q) succeeded, want error", k)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := time.Date(2024, 3, 15, 23, 42, 7, 123, time.Local)
	once := Normalize(in)
	if once.Hour() != 0 || once.Minute() != 0 || once.Second() != 0 || once.Nanosecond() != 0 {
		t.Fatalf("Normalize left time-of-day: %v", once)
	}
	if !Normalize(once).Equal(once) {
		t.Error("Normalize is not idempotent")
	}
	if once.Day() != 15 || once.Month() != 3 || once.Year() != 2024 {
		t.Errorf("Normalize changed the calendar day: %v", once)
	}
}

func TestWeekOf(t *testing.T) {
	// a Wednesday, a Monday, and the Sunday edge that must not start a new week
	cases := []struct {
		in     string
		monday string
	}{
		{"2024-01-03", "2024-01-01"}, // Wednesday
		{"2024-01-01", "2024-01-01"}, // Monday itself
		{"2024-01-07", "2024-01-01"}, // Sunday belongs to the preceding Monday
		{"2024-03-31", "2024-03-25"}, // Sunday across a month boundary
	}
	for _, tc := range cases {
		d, _ := ParseKey(tc.in)
		week := WeekOf(d)
		if len(week) != 7 {
			t.Fatalf("WeekOf(%s): got %d days", tc.in, len(week))
		}
		if week[0].Weekday() != time.Monday {
			t.Errorf("WeekOf(%s): first day is %v, want Monday", tc.in, week[0].Weekday())
		}
		if got := Key(week[0]); got != tc.monday {
			t.Errorf("WeekOf(%s): monday = %s, want %s", tc.in, got, tc.monday)
		}
		found := false
		for i, day := range week {
			if Key(day) == tc.in {
				found = true
			}
			if i > 0 && DayDiff(day, week[i-1]) != 1 {
				t.Errorf("WeekOf(%s): days %d and %d are not consecutive", tc.in, i-1, i)
			}
		}
		if !found {
			t.Errorf("WeekOf(%s): input day missing from its own week", tc.in)
		}
	}
}

func TestDayDiff(t *testing.T) {
	a, _ := ParseKey("2024-01-03")
	b, _ := ParseKey("2024-01-01")
	if got := DayDiff(a, b); got != 2 {
		t.Errorf("DayDiff = %d, want 2", got)
	}
	if got := DayDiff(b, a); got != -2 {
		t.Errorf("DayDiff reversed = %d, want -2", got)
	}
	if got := DayDiff(a, a); got != 0 {
		t.Errorf("DayDiff same day = %d, want 0", got)
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tc := range cases {
		if got := DaysIn(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysIn(%d, %v) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}
