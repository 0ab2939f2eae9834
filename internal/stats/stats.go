// Package stats computes streaks over perfect days and the profile
// statistics. A perfect day is one on which every habit that already existed
// on that day has a completion record.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitloop/internal/dates"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

type Streaks struct {
	Current int `json:"current_streak"`
	Best    int `json:"best_streak"`
}

type DailyStat struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

type Profile struct {
	TotalHabits      int         `json:"total_habits"`
	DailyHabits      int         `json:"daily_habits"`
	WeeklyHabits     int         `json:"weekly_habits"`
	TotalCompletions int         `json:"total_completions"`
	CurrentStreak    int         `json:"current_streak"`
	BestStreak       int         `json:"best_streak"`
	WeeklyStats      []DailyStat `json:"weekly_stats"`
	CompletionRate   int         `json:"completion_rate"`
}

type Calculator struct {
	habits   store.HabitStore
	progress store.ProgressStore
	log      *zap.Logger
}

func NewCalculator(habits store.HabitStore, progress store.ProgressStore, log *zap.Logger) *Calculator {
	return &Calculator{habits: habits, progress: progress, log: log}
}

// Streaks computes the current and best runs of consecutive perfect days,
// evaluated against the given now instant.
func (c *Calculator) Streaks(ctx context.Context, userID uuid.UUID, now time.Time) (Streaks, error) {
	habits, err := c.habits.HabitsByUser(ctx, userID)
	if err != nil {
		return Streaks{}, fmt.Errorf("streaks: %w", err)
	}
	if len(habits) == 0 {
		return Streaks{}, nil
	}

	habitIDs := make([]uuid.UUID, len(habits))
	createdDays := make([]string, len(habits))
	for i, h := range habits {
		habitIDs[i] = h.ID
		createdDays[i] = dates.Key(dates.Normalize(h.CreatedAt))
	}
	sort.Strings(createdDays)

	records, err := c.progress.FindAll(ctx, habitIDs)
	if err != nil {
		return Streaks{}, fmt.Errorf("streaks: %w", err)
	}
	if len(records) == 0 {
		return Streaks{}, nil
	}

	doneByDay := map[string]map[uuid.UUID]struct{}{}
	for _, p := range records {
		key := dates.Key(p.Date)
		if doneByDay[key] == nil {
			doneByDay[key] = map[uuid.UUID]struct{}{}
		}
		doneByDay[key][p.HabitID] = struct{}{}
	}

	// a day only requires the habits that already existed on it; habits
	// created later never retroactively break old streaks
	requiredOn := func(dayKey string) int {
		return sort.SearchStrings(createdDays, dayKey+"\x00")
	}

	perfect := make([]string, 0, len(doneByDay))
	for key, done := range doneByDay {
		if required := requiredOn(key); required > 0 && len(done) >= required {
			perfect = append(perfect, key)
		}
	}
	if len(perfect) == 0 {
		return Streaks{}, nil
	}
	// date keys sort lexicographically in chronological order; most recent first
	sort.Sort(sort.Reverse(sort.StringSlice(perfect)))

	today := dates.Normalize(now)
	yesterday := dates.Normalize(today.AddDate(0, 0, -1))

	var current int
	// a streak only counts as current while it reaches today or yesterday
	if perfect[0] == dates.Key(today) || perfect[0] == dates.Key(yesterday) {
		expect, _ := dates.ParseKey(perfect[0])
		for _, key := range perfect {
			if key != dates.Key(expect) {
				break
			}
			current++
			expect = dates.Normalize(expect.AddDate(0, 0, -1))
		}
	}

	best := 0
	run := 1
	for i := 0; i < len(perfect)-1; i++ {
		a, _ := dates.ParseKey(perfect[i])
		b, _ := dates.ParseKey(perfect[i+1])
		if dates.DayDiff(a, b) == 1 {
			run++
		} else {
			if run > best {
				best = run
			}
			run = 1
		}
	}
	if run > best {
		best = run
	}
	if current > best {
		best = current
	}

	return Streaks{Current: current, Best: best}, nil
}

// Profile aggregates the statistics shown on the profile page: habit counts,
// streaks, the trailing seven days, and the rolling 30-day completion rate.
func (c *Calculator) Profile(ctx context.Context, userID uuid.UUID, now time.Time) (*Profile, error) {
	habits, err := c.habits.HabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}

	out := &Profile{WeeklyStats: []DailyStat{}}
	for _, h := range habits {
		switch h.Frequency {
		case models.FrequencyWeekly:
			out.WeeklyHabits++
		default:
			out.DailyHabits++
		}
	}
	out.TotalHabits = len(habits)
	if len(habits) == 0 {
		return out, nil
	}

	habitIDs := make([]uuid.UUID, len(habits))
	for i := range habits {
		habitIDs[i] = habits[i].ID
	}

	out.TotalCompletions, err = c.progress.CountAll(ctx, habitIDs)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}

	streaks, err := c.Streaks(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	out.CurrentStreak = streaks.Current
	out.BestStreak = streaks.Best

	today := dates.Normalize(now)

	// trailing seven days, oldest first (distinct from the Monday-week view)
	from := dates.Normalize(today.AddDate(0, 0, -6))
	records, err := c.progress.FindRange(ctx, habitIDs, from, today)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}
	completedByDay := map[string]map[uuid.UUID]struct{}{}
	for _, p := range records {
		key := dates.Key(p.Date)
		if completedByDay[key] == nil {
			completedByDay[key] = map[uuid.UUID]struct{}{}
		}
		completedByDay[key][p.HabitID] = struct{}{}
	}
	for i := 6; i >= 0; i-- {
		day := dates.Normalize(today.AddDate(0, 0, -i))
		key := dates.Key(day)
		completed := len(completedByDay[key])
		out.WeeklyStats = append(out.WeeklyStats, DailyStat{
			Date:       key,
			Weekday:    day.Weekday().String(),
			Completed:  completed,
			Total:      len(habits),
			Percentage: percentage(completed, len(habits)),
		})
	}

	// 30-day completion rate against the possible completions: one per day
	// for daily habits, four weeks for weekly ones, capped at 100
	since := dates.Normalize(today.AddDate(0, 0, -30))
	recent, err := c.progress.CountSince(ctx, habitIDs, since)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}
	possible := out.DailyHabits*30 + out.WeeklyHabits*4
	if possible > 0 {
		r := percentage(recent, possible)
		if r > 100 {
			r = 100
		}
		out.CompletionRate = r
	}
	return out, nil
}

// percentage rounds completed/total to a whole percent, half away from zero,
// matching the calendar views.
func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
