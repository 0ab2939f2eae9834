package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"habitloop/internal/dates"
	"habitloop/internal/models"
)

const progressColumns = `id, habit_id, date, status, created_at`

func (s *Postgres) FindOne(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error) {
	var p models.Progress
	err := s.db.GetContext(ctx, &p,
		`SELECT `+progressColumns+` FROM progress WHERE habit_id=$1 AND date=$2::date`,
		habitID, dates.Key(date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &p, nil
}

func (s *Postgres) FindRange(ctx context.Context, habitIDs []uuid.UUID, from, to time.Time) ([]models.Progress, error) {
	if len(habitIDs) == 0 {
		return []models.Progress{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+progressColumns+` FROM progress
		 WHERE habit_id IN (?) AND date >= ? AND date <= ?
		 ORDER BY date`,
		habitIDs, dates.Key(from), dates.Key(to))
	if err != nil {
		return nil, fmt.Errorf("find progress range: %w", err)
	}
	out := []models.Progress{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find progress range: %w", err)
	}
	return out, nil
}

func (s *Postgres) FindAll(ctx context.Context, habitIDs []uuid.UUID) ([]models.Progress, error) {
	if len(habitIDs) == 0 {
		return []models.Progress{}, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+progressColumns+` FROM progress WHERE habit_id IN (?) ORDER BY date DESC`,
		habitIDs)
	if err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	out := []models.Progress{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateOne(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Progress, error) {
	var p models.Progress
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO progress (id, habit_id, date, status)
		 VALUES ($1, $2, $3::date, $4)
		 RETURNING `+progressColumns,
		uuid.New(), habitID, dates.Key(date), models.StatusDone,
	).StructScan(&p)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create progress: %w", ErrConflict)
		}
		s.log.Error("create progress failed", zap.Error(err))
		return nil, fmt.Errorf("create progress: %w", err)
	}
	return &p, nil
}

// CreateMany materializes records for every date that does not already have
// one. A single multi-row INSERT keeps the batch atomic so a concurrent
// reader never sees a half-expanded week.
func (s *Postgres) CreateMany(ctx context.Context, habitID uuid.UUID, days []time.Time) error {
	if len(days) == 0 {
		return nil
	}
	values := make([]string, 0, len(days))
	args := make([]interface{}, 0, len(days)*4)
	i := 1
	for _, key := range dateKeys(days) {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d::date, $%d)", i, i+1, i+2, i+3))
		args = append(args, uuid.New(), habitID, key, models.StatusDone)
		i += 4
	}
	query := `INSERT INTO progress (id, habit_id, date, status) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (habit_id, date) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("batch create progress failed",
			zap.String("habit_id", habitID.String()),
			zap.Int("days", len(days)),
			zap.Error(err))
		return fmt.Errorf("batch create progress: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteOne(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return requireRow(res)
}

// DeleteMany removes only records exactly matching the resolved date set, in
// one statement.
func (s *Postgres) DeleteMany(ctx context.Context, habitID uuid.UUID, days []time.Time) error {
	if len(days) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`DELETE FROM progress WHERE habit_id = ? AND date IN (?)`,
		habitID, dateKeys(days))
	if err != nil {
		return fmt.Errorf("batch delete progress: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("batch delete progress: %w", err)
	}
	return nil
}

func (s *Postgres) CountAll(ctx context.Context, habitIDs []uuid.UUID) (int, error) {
	if len(habitIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM progress WHERE habit_id IN (?)`, habitIDs)
	if err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	return n, nil
}

func (s *Postgres) CountSince(ctx context.Context, habitIDs []uuid.UUID, since time.Time) (int, error) {
	if len(habitIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		`SELECT COUNT(*) FROM progress WHERE habit_id IN (?) AND date >= ?`,
		habitIDs, dates.Key(since))
	if err != nil {
		return 0, fmt.Errorf("count progress since: %w", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count progress since: %w", err)
	}
	return n, nil
}
