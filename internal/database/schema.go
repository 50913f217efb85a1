package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                UUID PRIMARY KEY,
		username          TEXT NOT NULL DEFAULT '',
		balance           NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_ephemeral      BOOLEAN NOT NULL DEFAULT TRUE,
		is_admin          BOOLEAN NOT NULL DEFAULT FALSE,
		total_hands       INTEGER NOT NULL DEFAULT 0,
		total_winnings    NUMERIC(18,2) NOT NULL DEFAULT 0,
		referral_rank     TEXT NOT NULL DEFAULT 'FREE',
		referred_by       UUID REFERENCES users(id),
		referral_earnings NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		type       TEXT NOT NULL,
		amount     NUMERIC(18,2) NOT NULL,
		hand_id    UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS pool_balances (
		id                   TEXT PRIMARY KEY,
		global_partner_pool  NUMERIC(18,2) NOT NULL DEFAULT 0,
		monthly_jackpot_pool NUMERIC(18,2) NOT NULL DEFAULT 0,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS hand_history (
		hand_id         UUID PRIMARY KEY,
		table_id        TEXT NOT NULL,
		hand_number     INTEGER NOT NULL,
		mode            TEXT NOT NULL,
		community_cards JSONB NOT NULL,
		winners         JSONB NOT NULL,
		side_pots       JSONB NOT NULL,
		rake            NUMERIC(18,2) NOT NULL DEFAULT 0,
		fairness        JSONB,
		played_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS hand_history_table_idx ON hand_history (table_id, hand_number)`,
	`CREATE TABLE IF NOT EXISTS table_activity (
		table_id     TEXT PRIMARY KEY,
		status       TEXT NOT NULL DEFAULT 'active',
		last_hand_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
