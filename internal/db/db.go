package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// Connect opens the SQLite database at dbPath. The pure-Go driver registers
// itself as "sqlite".
func Connect(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	pool, err := sqlx.ConnectContext(ctx, "sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// SQLite allows a single writer.
	pool.SetMaxOpenConns(1)
	slog.InfoContext(ctx, "Connected to database", "db.path", dbPath)
	return pool, nil
}

// InitializeDB creates the completed match tables if they do not exist.
func InitializeDB(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	matchSchema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		team_a TEXT NOT NULL,
		team_b TEXT NOT NULL,
		score_a INTEGER NOT NULL,
		score_b INTEGER NOT NULL,
		shot_count INTEGER NOT NULL,
		finished_at DATETIME NOT NULL
	);`
	if _, err := db.ExecContext(ctx, matchSchema); err != nil {
		return fmt.Errorf("failed to create matches table: %w", err)
	}

	shotSchema := `
	CREATE TABLE IF NOT EXISTS shots (
		match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		hitter TEXT NOT NULL,
		receiver TEXT NOT NULL,
		hitter_side TEXT NOT NULL,
		hit_zone TEXT NOT NULL,
		receive_zone TEXT NOT NULL,
		shot_type TEXT NOT NULL,
		result TEXT NOT NULL,
		is_cross INTEGER NOT NULL,
		score_a INTEGER NOT NULL,
		score_b INTEGER NOT NULL,
		PRIMARY KEY (match_id, seq)
	);`
	if _, err := db.ExecContext(ctx, shotSchema); err != nil {
		return fmt.Errorf("failed to create shots table: %w", err)
	}

	slog.InfoContext(ctx, "DB schema verified")
	return nil
}
