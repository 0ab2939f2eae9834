// Package store defines the persistence contracts the engines read and write
// through, with a postgres implementation and an in-memory one for tests and
// DB-less development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"habitloop/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint is violated,
	// e.g. registering an email that is already taken.
	ErrConflict = errors.New("already exists")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	SetVerification(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error
	MarkValidated(ctx context.Context, userID uuid.UUID) error
}

type HabitStore interface {
	CreateHabit(ctx context.Context, h *models.Habit) error
	HabitByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	HabitsByUser(ctx context.Context, userID uuid.UUID) ([]models.Habit, error)
	UpdateHabit(ctx context.Context, h *models.Habit) error
	// DeleteHabit removes the habit together with its completion records and
	// tag links.
	DeleteHabit(ctx context.Context, id uuid.UUID) error
	// ReplaceTags resolves each tag with find-or-create semantics, deduplicated
	// on (name, emoji), and relinks the habit to exactly that set.
	ReplaceTags(ctx context.Context, habitID uuid.UUID, tags []models.Tag) ([]models.Tag, error)
}

// ProgressStore is the completion-record contract the toggle engine and the
// aggregators rely on. Records are uniquely keyed by (habit id, date);
// CreateMany and DeleteMany must each be atomic so a concurrent reader never
// observes a partially expanded week.
type ProgressStore interface {
	FindOne(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error)
	FindRange(ctx context.Context, habitIDs []uuid.UUID, from, to time.Time) ([]models.Progress, error)
	FindAll(ctx context.Context, habitIDs []uuid.UUID) ([]models.Progress, error)
	CreateOne(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error)
	// CreateMany inserts a record for every date that does not already have
	// one, skipping duplicates.
	CreateMany(ctx context.Context, habitID uuid.UUID, dates []time.Time) error
	DeleteOne(ctx context.Context, id uuid.UUID) error
	// DeleteMany removes the records exactly matching the given date set.
	DeleteMany(ctx context.Context, habitID uuid.UUID, dates []time.Time) error
	CountAll(ctx context.Context, habitIDs []uuid.UUID) (int, error)
	CountSince(ctx context.Context, habitIDs []uuid.UUID, since time.Time) (int, error)
}
