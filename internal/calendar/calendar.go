// Package calendar builds the read-model views: a full month of per-day
// completion status and the Monday-Sunday history of the current week.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitloop/internal/cache"
	"habitloop/internal/dates"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

// ErrInvalidPeriod is returned for out-of-range month/year parameters.
var ErrInvalidPeriod = errors.New("invalid month or year")

type HabitStatus struct {
	HabitID   uuid.UUID        `json:"habit_id"`
	HabitName string           `json:"habit_name"`
	Status    string           `json:"status"` // "done" | "pending"
	Frequency models.Frequency `json:"frequency"`
	Tags      []models.Tag     `json:"tags"`
}

type Day struct {
	Date            string        `json:"date"`
	DayNumber       int           `json:"day_number"`
	IsToday         bool          `json:"is_today"`
	IsFuture        bool          `json:"is_future"`
	IsCurrentMonth  bool          `json:"is_current_month"`
	TotalHabits     int           `json:"total_habits"`
	CompletedHabits int           `json:"completed_habits"`
	CompletionRate  int           `json:"completion_rate"`
	Habits          []HabitStatus `json:"habits"`
}

type Month struct {
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	MonthName string `json:"month_name"`
	Days      []Day  `json:"days"`
}

type WeekDay struct {
	Date           string        `json:"date"`
	Weekday        string        `json:"weekday"`
	IsToday        bool          `json:"is_today"`
	CompletionRate int           `json:"completion_rate"`
	Habits         []HabitStatus `json:"habits"`
}

type Week struct {
	Dates []string  `json:"dates"`
	Days  []WeekDay `json:"days"`
}

type Aggregator struct {
	habits   store.HabitStore
	progress store.ProgressStore
	months   cache.MonthCache
	log      *zap.Logger
}

func NewAggregator(habits store.HabitStore, progress store.ProgressStore, months cache.MonthCache, log *zap.Logger) *Aggregator {
	return &Aggregator{habits: habits, progress: progress, months: months, log: log}
}

// rate rounds completed/total to a whole percentage, half away from zero.
func rate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// BuildMonth renders the day-by-day view of one calendar month. Day status is
// derived purely from record membership: the toggle engine already
// materializes all seven days of a weekly habit, so no frequency
// special-casing happens here. The result is served from the advisory cache
// when present.
func (a *Aggregator) BuildMonth(ctx context.Context, userID uuid.UUID, year, month int, now time.Time) (*Month, error) {
	if month < 1 || month > 12 || year < 2020 || year > 2100 {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, year, month)
	}

	if payload, ok := a.months.GetMonth(ctx, userID, year, month); ok {
		var cached Month
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		// a corrupt entry is treated as a miss
		a.months.InvalidateMonth(ctx, userID, year, month)
	}

	out := &Month{
		Month:     month,
		Year:      year,
		MonthName: time.Month(month).String(),
		Days:      []Day{},
	}

	habits, err := a.habits.HabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build month: %w", err)
	}
	if len(habits) == 0 {
		return out, nil
	}

	daysInMonth := dates.DaysIn(year, time.Month(month))
	first := dates.MidnightAt(year, time.Month(month), 1)
	last := dates.MidnightAt(year, time.Month(month), daysInMonth)

	habitIDs := make([]uuid.UUID, len(habits))
	for i := range habits {
		habitIDs[i] = habits[i].ID
	}
	records, err := a.progress.FindRange(ctx, habitIDs, first, last)
	if err != nil {
		return nil, fmt.Errorf("build month: %w", err)
	}
	doneByDay := groupByDay(records)

	today := dates.Normalize(now)
	todayKey := dates.Key(today)

	for day := 1; day <= daysInMonth; day++ {
		current := dates.MidnightAt(year, time.Month(month), day)
		key := dates.Key(current)
		done := doneByDay[key]

		statuses := make([]HabitStatus, len(habits))
		completed := 0
		for i, h := range habits {
			status := "pending"
			if done[h.ID] {
				status = "done"
				completed++
			}
			statuses[i] = HabitStatus{
				HabitID:   h.ID,
				HabitName: h.Name,
				Status:    status,
				Frequency: h.Frequency,
				Tags:      h.Tags,
			}
		}

		out.Days = append(out.Days, Day{
			Date:            key,
			DayNumber:       day,
			IsToday:         key == todayKey,
			IsFuture:        current.After(today),
			IsCurrentMonth:  true,
			TotalHabits:     len(habits),
			CompletedHabits: completed,
			CompletionRate:  rate(completed, len(habits)),
			Habits:          statuses,
		})
	}

	if payload, err := json.Marshal(out); err == nil {
		a.months.SetMonth(ctx, userID, year, month, payload)
	}
	return out, nil
}

// BuildWeek renders the Monday-Sunday span of the week containing now. It is
// the fixed current week, not the trailing seven days.
func (a *Aggregator) BuildWeek(ctx context.Context, userID uuid.UUID, now time.Time) (*Week, error) {
	week := dates.WeekOf(now)
	out := &Week{Dates: make([]string, len(week)), Days: []WeekDay{}}
	for i, d := range week {
		out.Dates[i] = dates.Key(d)
	}

	habits, err := a.habits.HabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build week: %w", err)
	}

	doneByDay := map[string]map[uuid.UUID]bool{}
	if len(habits) > 0 {
		habitIDs := make([]uuid.UUID, len(habits))
		for i := range habits {
			habitIDs[i] = habits[i].ID
		}
		records, err := a.progress.FindRange(ctx, habitIDs, week[0], week[6])
		if err != nil {
			return nil, fmt.Errorf("build week: %w", err)
		}
		doneByDay = groupByDay(records)
	}

	todayKey := dates.Key(dates.Normalize(now))
	for _, d := range week {
		key := dates.Key(d)
		done := doneByDay[key]

		statuses := make([]HabitStatus, len(habits))
		completed := 0
		for i, h := range habits {
			status := "pending"
			if done[h.ID] {
				status = "done"
				completed++
			}
			statuses[i] = HabitStatus{
				HabitID:   h.ID,
				HabitName: h.Name,
				Status:    status,
				Frequency: h.Frequency,
				Tags:      h.Tags,
			}
		}
		out.Days = append(out.Days, WeekDay{
			Date:           key,
			Weekday:        d.Weekday().String(),
			IsToday:        key == todayKey,
			CompletionRate: rate(completed, len(habits)),
			Habits:         statuses,
		})
	}
	return out, nil
}

func groupByDay(records []models.Progress) map[string]map[uuid.UUID]bool {
	out := map[string]map[uuid.UUID]bool{}
	for _, p := range records {
		key := dates.Key(p.Date)
		if out[key] == nil {
			out[key] = map[uuid.UUID]bool{}
		}
		out[key][p.HabitID] = true
	}
	return out
}
