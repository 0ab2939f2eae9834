package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"habitloop/internal/models"
)

func (s *Postgres) CreateHabit(ctx context.Context, h *models.Habit) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO habits (id, user_id, name, description, frequency)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		h.ID, h.UserID, h.Name, h.Description, h.Frequency,
	).Scan(&h.CreatedAt)
	if err != nil {
		s.log.Error("create habit failed", zap.Error(err))
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

func (s *Postgres) HabitByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	var h models.Habit
	err := s.db.GetContext(ctx, &h,
		`SELECT id, user_id, name, description, frequency, created_at FROM habits WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("habit by id: %w", err)
	}
	tags, err := s.tagsForHabits(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	h.Tags = tags[id]
	if h.Tags == nil {
		h.Tags = []models.Tag{}
	}
	return &h, nil
}

func (s *Postgres) HabitsByUser(ctx context.Context, userID uuid.UUID) ([]models.Habit, error) {
	habits := []models.Habit{}
	err := s.db.SelectContext(ctx, &habits,
		`SELECT id, user_id, name, description, frequency, created_at
		 FROM habits WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("habits by user: %w", err)
	}
	if len(habits) == 0 {
		return habits, nil
	}
	ids := make([]uuid.UUID, len(habits))
	for i := range habits {
		ids[i] = habits[i].ID
	}
	tags, err := s.tagsForHabits(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range habits {
		habits[i].Tags = tags[habits[i].ID]
		if habits[i].Tags == nil {
			habits[i].Tags = []models.Tag{}
		}
	}
	return habits, nil
}

func (s *Postgres) UpdateHabit(ctx context.Context, h *models.Habit) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET name=$2, description=$3, frequency=$4 WHERE id=$1`,
		h.ID, h.Name, h.Description, h.Frequency)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	return requireRow(res)
}

// DeleteHabit relies on ON DELETE CASCADE to remove completion records and
// tag links together with the habit row.
func (s *Postgres) DeleteHabit(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) ReplaceTags(ctx context.Context, habitID uuid.UUID, tags []models.Tag) ([]models.Tag, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("replace tags: %w", err)
	}
	defer tx.Rollback()

	resolved := make([]models.Tag, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		key := t.Name + "\x00" + t.Emoji
		if seen[key] {
			continue
		}
		seen[key] = true

		var tag models.Tag
		// find-or-create on (name, emoji); the DO UPDATE no-op makes
		// RETURNING yield the existing row on conflict
		err := tx.QueryRowxContext(ctx,
			`INSERT INTO tags (id, name, emoji) VALUES ($1, $2, $3)
			 ON CONFLICT (name, emoji) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id, name, emoji`,
			uuid.New(), t.Name, t.Emoji,
		).StructScan(&tag)
		if err != nil {
			return nil, fmt.Errorf("ensure tag: %w", err)
		}
		resolved = append(resolved, tag)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM habit_tags WHERE habit_id=$1`, habitID); err != nil {
		return nil, fmt.Errorf("unlink tags: %w", err)
	}
	for _, tag := range resolved {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO habit_tags (habit_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			habitID, tag.ID); err != nil {
			return nil, fmt.Errorf("link tag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("replace tags: %w", err)
	}
	return resolved, nil
}

type habitTagRow struct {
	HabitID uuid.UUID `db:"habit_id"`
	ID      uuid.UUID `db:"id"`
	Name    string    `db:"name"`
	Emoji   string    `db:"emoji"`
}

func (s *Postgres) tagsForHabits(ctx context.Context, habitIDs []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	rows := []habitTagRow{}
	query, args, err := sqlx.In(
		`SELECT ht.habit_id, t.id, t.name, t.emoji
		 FROM habit_tags ht JOIN tags t ON t.id = ht.tag_id
		 WHERE ht.habit_id IN (?)`, habitIDs)
	if err != nil {
		return nil, fmt.Errorf("tags for habits: %w", err)
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("tags for habits: %w", err)
	}
	out := map[uuid.UUID][]models.Tag{}
	for _, r := range rows {
		out[r.HabitID] = append(out[r.HabitID], models.Tag{ID: r.ID, Name: r.Name, Emoji: r.Emoji})
	}
	return out, nil
}
