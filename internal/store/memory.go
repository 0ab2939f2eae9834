package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"habitloop/internal/dates"
	"habitloop/internal/models"
)

// Memory is an in-process implementation of the store contracts, used by
// tests and as the fallback when no DATABASE_URL is configured.
type Memory struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*models.User
	emails    map[string]uuid.UUID
	habits    map[uuid.UUID]*models.Habit
	habitTags map[uuid.UUID][]models.Tag
	tags      map[string]models.Tag
	progress  map[uuid.UUID]map[string]*models.Progress
	byID      map[uuid.UUID]*models.Progress
}

func NewMemory() *Memory {
	return &Memory{
		users:     map[uuid.UUID]*models.User{},
		emails:    map[string]uuid.UUID{},
		habits:    map[uuid.UUID]*models.Habit{},
		habitTags: map[uuid.UUID][]models.Tag{},
		tags:      map[string]models.Tag{},
		progress:  map[uuid.UUID]map[string]*models.Progress{},
		byID:      map[uuid.UUID]*models.Progress{},
	}
}

var (
	_ UserStore     = (*Memory)(nil)
	_ HabitStore    = (*Memory)(nil)
	_ ProgressStore = (*Memory)(nil)
)

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, taken := m.emails[key]; taken {
		return ErrConflict
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	m.users[u.ID] = &cp
	m.emails[key] = u.ID
	return nil
}

func (m *Memory) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) SetVerification(_ context.Context, userID uuid.UUID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.VerifyToken = &token
	u.VerifyTokenExpires = &expires
	u.IsValidated = false
	return nil
}

func (m *Memory) MarkValidated(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsValidated = true
	u.VerifyToken = nil
	u.VerifyTokenExpires = nil
	return nil
}

func (m *Memory) CreateHabit(_ context.Context, h *models.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	cp := *h
	cp.Tags = nil
	m.habits[h.ID] = &cp
	m.progress[h.ID] = map[string]*models.Progress{}
	return nil
}

func (m *Memory) HabitByID(_ context.Context, id uuid.UUID) (*models.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.habits[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	cp.Tags = append([]models.Tag{}, m.habitTags[id]...)
	return &cp, nil
}

func (m *Memory) HabitsByUser(_ context.Context, userID uuid.UUID) ([]models.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Habit{}
	for id, h := range m.habits {
		if h.UserID != userID {
			continue
		}
		cp := *h
		cp.Tags = append([]models.Tag{}, m.habitTags[id]...)
		out = append(out, cp)
	}
	// stable order matching the postgres ORDER BY created_at
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *Memory) UpdateHabit(_ context.Context, h *models.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.habits[h.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = h.Name
	cur.Description = h.Description
	cur.Frequency = h.Frequency
	return nil
}

func (m *Memory) DeleteHabit(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.habits[id]; !ok {
		return ErrNotFound
	}
	delete(m.habits, id)
	delete(m.habitTags, id)
	for _, p := range m.progress[id] {
		delete(m.byID, p.ID)
	}
	delete(m.progress, id)
	return nil
}

func (m *Memory) ReplaceTags(_ context.Context, habitID uuid.UUID, tags []models.Tag) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.habits[habitID]; !ok {
		return nil, ErrNotFound
	}
	resolved := []models.Tag{}
	seen := map[string]bool{}
	for _, t := range tags {
		key := t.Name + "\x00" + t.Emoji
		if seen[key] {
			continue
		}
		seen[key] = true
		tag, ok := m.tags[key]
		if !ok {
			tag = models.Tag{ID: uuid.New(), Name: t.Name, Emoji: t.Emoji}
			m.tags[key] = tag
		}
		resolved = append(resolved, tag)
	}
	m.habitTags[habitID] = append([]models.Tag{}, resolved...)
	return resolved, nil
}

func (m *Memory) FindOne(_ context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[habitID][dates.Key(date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) FindRange(_ context.Context, habitIDs []uuid.UUID, from, to time.Time) ([]models.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fromKey, toKey := dates.Key(from), dates.Key(to)
	out := []models.Progress{}
	for _, id := range habitIDs {
		for key, p := range m.progress[id] {
			if key >= fromKey && key <= toKey {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (m *Memory) FindAll(_ context.Context, habitIDs []uuid.UUID) ([]models.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Progress{}
	for _, id := range habitIDs {
		for _, p := range m.progress[id] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *Memory) CreateOne(_ context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(habitID, date, false)
}

func (m *Memory) CreateMany(_ context.Context, habitID uuid.UUID, days []time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range days {
		if _, err := m.createLocked(habitID, d, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) createLocked(habitID uuid.UUID, date time.Time, skipDuplicates bool) (*models.Progress, error) {
	day := dates.Normalize(date)
	key := dates.Key(day)
	byDay, ok := m.progress[habitID]
	if !ok {
		byDay = map[string]*models.Progress{}
		m.progress[habitID] = byDay
	}
	if existing, ok := byDay[key]; ok {
		if skipDuplicates {
			cp := *existing
			return &cp, nil
		}
		return nil, ErrConflict
	}
	p := &models.Progress{
		ID:        uuid.New(),
		HabitID:   habitID,
		Date:      day,
		Status:    models.StatusDone,
		CreatedAt: time.Now(),
	}
	byDay[key] = p
	m.byID[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *Memory) DeleteOne(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.progress[p.HabitID], dates.Key(p.Date))
	return nil
}

func (m *Memory) DeleteMany(_ context.Context, habitID uuid.UUID, days []time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := m.progress[habitID]
	for _, d := range days {
		key := dates.Key(d)
		if p, ok := byDay[key]; ok {
			delete(m.byID, p.ID)
			delete(byDay, key)
		}
	}
	return nil
}

func (m *Memory) CountAll(_ context.Context, habitIDs []uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range habitIDs {
		n += len(m.progress[id])
	}
	return n, nil
}

func (m *Memory) CountSince(_ context.Context, habitIDs []uuid.UUID, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sinceKey := dates.Key(since)
	n := 0
	for _, id := range habitIDs {
		for key := range m.progress[id] {
			if key >= sinceKey {
				n++
			}
		}
	}
	return n, nil
}
