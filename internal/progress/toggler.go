// Package progress implements the toggle engine: the single mutation path
// for completion records. Weekly toggles must go through here, otherwise the
// one-record-per-week illusion breaks.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"habitloop/internal/cache"
	"habitloop/internal/dates"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

var togglesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "habitloop_toggles_total",
		Help: "Completion toggles by habit frequency and resulting state",
	},
	[]string{"frequency", "state"},
)

// Result reports the state after a toggle: Completed tells whether the habit
// is now done for the requested date, and Progress carries the record at that
// date (nil when un-toggled).
type Result struct {
	Completed bool             `json:"completed"`
	Progress  *models.Progress `json:"progress"`
}

type Toggler struct {
	habits   store.HabitStore
	progress store.ProgressStore
	months   cache.MonthCache
	log      *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewToggler(habits store.HabitStore, progress store.ProgressStore, months cache.MonthCache, log *zap.Logger) *Toggler {
	return &Toggler{
		habits:   habits,
		progress: progress,
		months:   months,
		log:      log,
		locks:    map[uuid.UUID]*sync.Mutex{},
	}
}

// habitLock serializes toggles per habit id. Concurrent toggles on the same
// habit over an overlapping week are the only real race in this design; two
// different habits never contend.
func (t *Toggler) habitLock(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// Toggle flips the completion state of a habit for the given date. Daily
// habits toggle the single day; weekly habits toggle every day of the
// Monday-Sunday week containing it.
func (t *Toggler) Toggle(ctx context.Context, habitID uuid.UUID, date time.Time) (Result, error) {
	day := dates.Normalize(date)

	habit, err := t.habits.HabitByID(ctx, habitID)
	if err != nil {
		return Result{}, fmt.Errorf("toggle: %w", err)
	}

	lock := t.habitLock(habitID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := t.progress.FindOne(ctx, habitID, day)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("toggle: %w", err)
	}

	var res Result
	switch habit.Frequency {
	case models.FrequencyWeekly:
		res, err = t.toggleWeekly(ctx, habitID, day, existing)
	default:
		res, err = t.toggleDaily(ctx, habitID, day, existing)
	}
	if err != nil {
		return Result{}, err
	}

	t.invalidateMonths(ctx, habit.UserID, habit.Frequency, day)

	state := "unmarked"
	if res.Completed {
		state = "marked"
	}
	togglesTotal.WithLabelValues(string(habit.Frequency), state).Inc()
	t.log.Debug("toggled completion",
		zap.String("habit_id", habitID.String()),
		zap.String("date", dates.Key(day)),
		zap.String("frequency", string(habit.Frequency)),
		zap.Bool("completed", res.Completed),
	)
	return res, nil
}

func (t *Toggler) toggleDaily(ctx context.Context, habitID uuid.UUID, day time.Time, existing *models.Progress) (Result, error) {
	if existing != nil {
		if err := t.progress.DeleteOne(ctx, existing.ID); err != nil {
			return Result{}, fmt.Errorf("toggle daily: %w", err)
		}
		return Result{Completed: false}, nil
	}
	rec, err := t.progress.CreateOne(ctx, habitID, day)
	if err != nil {
		return Result{}, fmt.Errorf("toggle daily: %w", err)
	}
	return Result{Completed: true, Progress: rec}, nil
}

// toggleWeekly treats the habit as one decision per week: the whole
// Monday-Sunday span is created or deleted together, while each day keeps its
// own record so calendars and streaks read uniformly across frequencies.
func (t *Toggler) toggleWeekly(ctx context.Context, habitID uuid.UUID, day time.Time, existing *models.Progress) (Result, error) {
	week := dates.WeekOf(day)
	if existing != nil {
		if err := t.progress.DeleteMany(ctx, habitID, week); err != nil {
			return Result{}, fmt.Errorf("toggle weekly: %w", err)
		}
		return Result{Completed: false}, nil
	}
	if err := t.progress.CreateMany(ctx, habitID, week); err != nil {
		return Result{}, fmt.Errorf("toggle weekly: %w", err)
	}
	rec, err := t.progress.FindOne(ctx, habitID, day)
	if err != nil {
		return Result{}, fmt.Errorf("toggle weekly: %w", err)
	}
	return Result{Completed: true, Progress: rec}, nil
}

// invalidateMonths drops the cached month views the toggle touched. A weekly
// span can straddle a month boundary, so both months are invalidated.
func (t *Toggler) invalidateMonths(ctx context.Context, userID uuid.UUID, freq models.Frequency, day time.Time) {
	days := []time.Time{day}
	if freq == models.FrequencyWeekly {
		days = dates.WeekOf(day)
	}
	seen := map[string]bool{}
	for _, d := range days {
		key := fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
		if seen[key] {
			continue
		}
		seen[key] = true
		t.months.InvalidateMonth(ctx, userID, d.Year(), int(d.Month()))
	}
}
