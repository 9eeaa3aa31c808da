package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		nickname   TEXT NOT NULL DEFAULT '',
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id           UUID PRIMARY KEY,
		name         TEXT NOT NULL,
		host_user_id UUID NOT NULL,
		max_players  INT NOT NULL DEFAULT 4,
		status       TEXT NOT NULL DEFAULT 'waiting',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS room_players (
		room_id   UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id   UUID NOT NULL,
		is_host   BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS round_results (
		id           UUID PRIMARY KEY,
		room_id      UUID NOT NULL,
		game_id      UUID NOT NULL,
		round        INT NOT NULL,
		level        INT NOT NULL,
		winning_team INT NOT NULL,
		level_delta  INT NOT NULL,
		tribute      TEXT NOT NULL,
		rankings     UUID[] NOT NULL,
		match_over   BOOLEAN NOT NULL DEFAULT FALSE,
		finished_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS round_results_room_idx ON round_results (room_id, finished_at)`,
}

// EnsureSchema creates any missing tables in a single transaction.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
