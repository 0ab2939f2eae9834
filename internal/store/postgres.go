package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"habitloop/internal/dates"
	"habitloop/internal/models"
)

const pgUniqueViolation = "23505"

// Postgres implements UserStore, HabitStore and ProgressStore on top of a
// sqlx connection using the pgx driver.
type Postgres struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewPostgres(db *sqlx.DB, log *zap.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

var (
	_ UserStore     = (*Postgres)(nil)
	_ HabitStore    = (*Postgres)(nil)
	_ ProgressStore = (*Postgres)(nil)
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_validated)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsValidated,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", ErrConflict)
		}
		s.log.Error("create user failed", zap.Error(err))
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, first_name, last_name, is_validated, verify_token, verify_token_expires, created_at`

func (s *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &u, nil
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return &u, nil
}

func (s *Postgres) SetVerification(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET verify_token=$2, verify_token_expires=$3, is_validated=FALSE WHERE id=$1`,
		userID, token, expires)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) MarkValidated(ctx context.Context, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_validated=TRUE, verify_token=NULL, verify_token_expires=NULL WHERE id=$1`,
		userID)
	if err != nil {
		return fmt.Errorf("mark validated: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// dateKeys renders canonical days as YYYY-MM-DD strings for DATE parameters,
// keeping the wire format independent of the process time zone.
func dateKeys(days []time.Time) []string {
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = dates.Key(d)
	}
	return keys
}
