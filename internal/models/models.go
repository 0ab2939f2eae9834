package models

import (
	"time"

	"github.com/google/uuid"
)

// Frequency controls how a toggle expands: daily habits toggle a single day,
// weekly habits toggle the whole Monday-Sunday week containing the day.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

type User struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	IsValidated        bool       `db:"is_validated" json:"is_validated"`
	VerifyToken        *string    `db:"verify_token" json:"-"`
	VerifyTokenExpires *time.Time `db:"verify_token_expires" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// Tag is deduplicated on (name, emoji): creating a tag that already exists
// returns the existing row.
type Tag struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Emoji string    `db:"emoji" json:"emoji,omitempty"`
}

type Habit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Frequency   Frequency `db:"frequency" json:"frequency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Tags        []Tag     `db:"-" json:"tags"`
}

const StatusDone = "done"

// Progress records that a habit was completed on a canonical day (local
// midnight). At most one row exists per (HabitID, Date); absence means
// "not done".
type Progress struct {
	ID        uuid.UUID `db:"id" json:"id"`
	HabitID   uuid.UUID `db:"habit_id" json:"habit_id"`
	Date      time.Time `db:"date" json:"date"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
