package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitloop/internal/cache"
	"habitloop/internal/dates"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

func newTestAggregator(t *testing.T, userID uuid.UUID, habitCount int) (*Aggregator, *store.Memory, []models.Habit) {
	t.Helper()
	mem := store.NewMemory()
	habits := make([]models.Habit, habitCount)
	for i := 0; i < habitCount; i++ {
		h := models.Habit{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      "habit",
			Frequency: models.FrequencyDaily,
		}
		if err := mem.CreateHabit(context.Background(), &h); err != nil {
			t.Fatalf("create habit: %v", err)
		}
		habits[i] = h
	}
	return NewAggregator(mem, mem, cache.NewNoop(), zap.NewNop()), mem, habits
}

func TestBuildMonthDayCounts(t *testing.T) {
	userID := uuid.New()
	agg, _, _ := newTestAggregator(t, userID, 1)
	now, _ := dates.ParseKey("2024-02-15")

	feb, err := agg.BuildMonth(context.Background(), userID, 2024, 2, now)
	if err != nil {
		t.Fatalf("BuildMonth: %v", err)
	}
	if len(feb.Days) != 29 {
		t.Errorf("leap February days = %d, want 29", len(feb.Days))
	}
	if feb.MonthName != "February" {
		t.Errorf("month name = %q", feb.MonthName)
	}

	apr, err := agg.BuildMonth(context.Background(), userID, 2024, 4, now)
	if err != nil {
		t.Fatalf("BuildMonth: %v", err)
	}
	if len(apr.Days) != 30 {
		t.Errorf("April days = %d, want 30", len(apr.Days))
	}
}

func TestBuildMonthCompletionRates(t *testing.T) {
	userID := uuid.New()
	agg, mem, habits := newTestAggregator(t, userID, 3)
	ctx := context.Background()

	day1, _ := dates.ParseKey("2024-01-01")
	day2, _ := dates.ParseKey("2024-01-02")
	// 1 of 3 on Jan 1, 2 of 3 on Jan 2
	mustCreate(t, mem, habits[0].ID, day1)
	mustCreate(t, mem, habits[0].ID, day2)
	mustCreate(t, mem, habits[1].ID, day2)

	now, _ := dates.ParseKey("2024-01-15")
	month, err := agg.BuildMonth(ctx, userID, 2024, 1, now)
	if err != nil {
		t.Fatalf("BuildMonth: %v", err)
	}
	if got := month.Days[0].CompletionRate; got != 33 {
		t.Errorf("1/3 rate = %d, want 33", got)
	}
	if got := month.Days[1].CompletionRate; got != 67 {
		t.Errorf("2/3 rate = %d, want 67", got)
	}
	if got := month.Days[2].CompletionRate; got != 0 {
		t.Errorf("0/3 rate = %d, want 0", got)
	}
	if month.Days[0].CompletedHabits != 1 || month.Days[0].TotalHabits != 3 {
		t.Errorf("day 1 counts = %d/%d", month.Days[0].CompletedHabits, month.Days[0].TotalHabits)
	}
}

func TestBuildMonthTodayAndFutureFlags(t *testing.T) {
	userID := uuid.New()
	agg, _, _ := newTestAggregator(t, userID, 1)
	now, _ := dates.ParseKey("2024-01-15")

	month, err := agg.BuildMonth(context.Background(), userID, 2024, 1, now)
	if err != nil {
		t.Fatalf("BuildMonth: %v", err)
	}
	for _, d := range month.Days {
		wantToday := d.DayNumber == 15
		wantFuture := d.DayNumber > 15
		if d.IsToday != wantToday {
			t.Errorf("day %d IsToday = %v", d.DayNumber, d.IsToday)
		}
		if d.IsFuture != wantFuture {
			t.Errorf("day %d IsFuture = %v", d.DayNumber, d.IsFuture)
		}
		if !d.IsCurrentMonth {
			t.Errorf("day %d IsCurrentMonth = false", d.DayNumber)
		}
	}
}

func TestBuildMonthNoHabits(t *testing.T) {
	userID := uuid.New()
	agg, _, _ := newTestAggregator(t, userID, 0)
	now, _ := dates.ParseKey("2024-01-15")

	month, err := agg.BuildMonth(context.Background(), userID, 2024, 1, now)
	if err != nil {
		t.Fatalf("BuildMonth: %v", err)
	}
	if len(month.Days) != 0 {
		t.Errorf("days = %d, want empty list for habit-less user", len(month.Days))
	}
}

func TestBuildMonthInvalidPeriod(t *testing.T) {
	userID := uuid.New()
	agg, _, _ := newTestAggregator(t, userID, 1)
	now, _ := dates.ParseKey("2024-01-15")

	cases := []struct{ year, month int }{
		{2024, 0}, {2024, 13}, {2019, 6}, {2101, 6},
	}
	for _, tc := range cases {
		if _, err := agg.BuildMonth(context.Background(), userID, tc.year, tc.month, now); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("BuildMonth(%d, %d): err = %v, want ErrInvalidPeriod", tc.year, tc.month, err)
		}
	}
}

func TestBuildWeekIsCurrentWeek(t *testing.T) {
	userID := uuid.New()
	agg, mem, habits := newTestAggregator(t, userID, 2)
	ctx := context.Background()

	// Wednesday; the view must cover Mon Jan 8 .. Sun Jan 14
	now, _ := dates.ParseKey("2024-01-10")
	monday, _ := dates.ParseKey("2024-01-08")
	mustCreate(t, mem, habits[0].ID, monday)
	mustCreate(t, mem, habits[1].ID, monday)

	week, err := agg.BuildWeek(ctx, userID, now)
	if err != nil {
		t.Fatalf("BuildWeek: %v", err)
	}
	if len(week.Days) != 7 || len(week.Dates) != 7 {
		t.Fatalf("got %d days, %d dates", len(week.Days), len(week.Dates))
	}
	if week.Dates[0] != "2024-01-08" || week.Dates[6] != "2024-01-14" {
		t.Errorf("span = %s..%s, want the Monday week", week.Dates[0], week.Dates[6])
	}
	if week.Days[0].CompletionRate != 100 {
		t.Errorf("Monday rate = %d, want 100", week.Days[0].CompletionRate)
	}
	if week.Days[1].CompletionRate != 0 {
		t.Errorf("Tuesday rate = %d, want 0", week.Days[1].CompletionRate)
	}
	if !week.Days[2].IsToday {
		t.Error("Wednesday not flagged as today")
	}
	if week.Days[0].Weekday != "Monday" {
		t.Errorf("first weekday = %s", week.Days[0].Weekday)
	}
}

func TestRateRounding(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{3, 3, 100},
		{1, 8, 13}, // 12.5 rounds half away from zero
	}
	for _, tc := range cases {
		if got := rate(tc.completed, tc.total); got != tc.want {
			t.Errorf("rate(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func mustCreate(t *testing.T, mem *store.Memory, habitID uuid.UUID, day time.Time) {
	t.Helper()
	if _, err := mem.CreateOne(context.Background(), habitID, day); err != nil {
		t.Fatalf("create progress: %v", err)
	}
}
