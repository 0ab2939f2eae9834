// Package db opens the postgres connection and applies the schema at boot.
package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Connect opens a pgx-backed sqlx handle and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_validated BOOLEAN NOT NULL DEFAULT FALSE,
		verify_token TEXT,
		verify_token_expires TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS habits (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		UNIQUE (name, emoji)
	)`,

	`CREATE TABLE IF NOT EXISTS habit_tags (
		habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (habit_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS progress (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'done',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (habit_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_habit_date ON progress(habit_id, date)`,
}

// RunMigrations applies the schema statements in order. Every statement is
// idempotent, so reruns at each boot are safe.
func RunMigrations(ctx context.Context, db *sqlx.DB, log *zap.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Info("database schema up to date", zap.Int("statements", len(migrations)))
	return nil
}
