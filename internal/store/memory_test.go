package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"habitloop/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func seedHabit(t *testing.T, mem *Memory, userID uuid.UUID) *models.Habit {
	t.Helper()
	h := &models.Habit{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Practice guitar",
		Frequency: models.FrequencyDaily,
		CreatedAt: time.Now(),
	}
	if err := mem.CreateHabit(context.Background(), h); err != nil {
		t.Fatalf("create habit: %v", err)
	}
	return h
}

func TestMemoryUserEmailConflict(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	u := &models.User{ID: uuid.New(), Email: "dup@example.com", CreatedAt: time.Now()}
	if err := mem.CreateUser(ctx, u); err != nil {
		t.Fatalf("first create: %v", err)
	}
	again := &models.User{ID: uuid.New(), Email: "dup@example.com", CreatedAt: time.Now()}
	if err := mem.CreateUser(ctx, again); !errors.Is(err, ErrConflict) {
		t.Fatalf("second create err = %v, want ErrConflict", err)
	}
}

func TestMemoryReplaceTagsDedup(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	a := seedHabit(t, mem, uuid.New())
	b := seedHabit(t, mem, uuid.New())

	tagsA, err := mem.ReplaceTags(ctx, a.ID, []models.Tag{
		{Name: "health", Emoji: "💪"},
		{Name: "health", Emoji: "💪"},
	})
	if err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if len(tagsA) != 1 {
		t.Fatalf("tags = %d, want 1 after dedup", len(tagsA))
	}

	// the same (name, emoji) pair on another habit resolves to the same row
	tagsB, err := mem.ReplaceTags(ctx, b.ID, []models.Tag{{Name: "health", Emoji: "💪"}})
	if err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if tagsB[0].ID != tagsA[0].ID {
		t.Fatalf("tag ids differ: %s vs %s", tagsB[0].ID, tagsA[0].ID)
	}

	// same name, different emoji is a distinct tag
	tagsC, err := mem.ReplaceTags(ctx, b.ID, []models.Tag{{Name: "health", Emoji: "🧠"}})
	if err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if tagsC[0].ID == tagsA[0].ID {
		t.Fatal("different emoji should not reuse the tag row")
	}
}

func TestMemoryCreateManySkipsDuplicates(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	h := seedHabit(t, mem, uuid.New())

	if _, err := mem.CreateOne(ctx, h.ID, day(2024, 6, 11)); err != nil {
		t.Fatalf("create one: %v", err)
	}

	week := []time.Time{
		day(2024, 6, 10), day(2024, 6, 11), day(2024, 6, 12),
		day(2024, 6, 13), day(2024, 6, 14), day(2024, 6, 15), day(2024, 6, 16),
	}
	if err := mem.CreateMany(ctx, h.ID, week); err != nil {
		t.Fatalf("create many: %v", err)
	}

	n, err := mem.CountAll(ctx, []uuid.UUID{h.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 {
		t.Fatalf("count = %d, want 7", n)
	}
}

func TestMemoryCreateOneDuplicateConflicts(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	h := seedHabit(t, mem, uuid.New())

	if _, err := mem.CreateOne(ctx, h.ID, day(2024, 6, 11)); err != nil {
		t.Fatalf("create one: %v", err)
	}
	if _, err := mem.CreateOne(ctx, h.ID, day(2024, 6, 11)); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate create err = %v, want ErrConflict", err)
	}
}

func TestMemoryDeleteHabitCascades(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	h := seedHabit(t, mem, uuid.New())

	if _, err := mem.ReplaceTags(ctx, h.ID, []models.Tag{{Name: "focus"}}); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if _, err := mem.CreateOne(ctx, h.ID, day(2024, 6, 11)); err != nil {
		t.Fatalf("create one: %v", err)
	}

	if err := mem.DeleteHabit(ctx, h.ID); err != nil {
		t.Fatalf("delete habit: %v", err)
	}
	if _, err := mem.HabitByID(ctx, h.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("habit lookup err = %v, want ErrNotFound", err)
	}
	n, err := mem.CountAll(ctx, []uuid.UUID{h.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("progress count after delete = %d, want 0", n)
	}
}

func TestMemoryHabitsSortedByCreation(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now()
	for i := 2; i >= 0; i-- {
		h := &models.Habit{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      "Habit",
			Frequency: models.FrequencyDaily,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := mem.CreateHabit(ctx, h); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	habits, err := mem.HabitsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(habits); i++ {
		if habits[i].CreatedAt.Before(habits[i-1].CreatedAt) {
			t.Fatalf("habits not sorted by creation time")
		}
	}
}
