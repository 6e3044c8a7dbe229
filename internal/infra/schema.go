package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
        id UUID PRIMARY KEY,
        code TEXT NOT NULL UNIQUE
    )`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id UUID PRIMARY KEY,
        client_tx_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        status TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (client_tx_id, kind)
    )`,
	`CREATE TABLE IF NOT EXISTS entries (
        id UUID PRIMARY KEY,
        transaction_id UUID NOT NULL REFERENCES transactions (id),
        account_id UUID NOT NULL REFERENCES accounts (id),
        amount BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS entries_account_idx ON entries (account_id)`,
	`CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY,
        phone TEXT NOT NULL UNIQUE,
        tier TEXT NOT NULL,
        pin_hash BYTEA NOT NULL,
        device_id TEXT NOT NULL DEFAULT '',
        token_version INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS wallets (
        id UUID PRIMARY KEY,
        owner_id UUID NOT NULL UNIQUE,
        account_code TEXT NOT NULL UNIQUE,
        status TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS asset_types (
        id TEXT PRIMARY KEY,
        symbol TEXT NOT NULL,
        decimals INT NOT NULL,
        authority TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS holdings (
        address TEXT PRIMARY KEY,
        owner TEXT NOT NULL,
        asset_type_id TEXT NOT NULL REFERENCES asset_types (id),
        amount BIGINT NOT NULL CHECK (amount >= 0),
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS holdings_owner_idx ON holdings (owner)`,
	`CREATE TABLE IF NOT EXISTS banks (
        id UUID PRIMARY KEY,
        authority TEXT NOT NULL,
        permitted_asset_type TEXT NOT NULL REFERENCES asset_types (id),
        account_code TEXT NOT NULL UNIQUE,
        round_count INT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS rounds (
        id UUID PRIMARY KEY,
        bank_id UUID NOT NULL REFERENCES banks (id),
        player_id TEXT NOT NULL,
        holding_address TEXT NOT NULL,
        asset_type_id TEXT NOT NULL,
        amount BIGINT NOT NULL,
        result TEXT NOT NULL,
        eligible BOOLEAN NOT NULL,
        bit SMALLINT NOT NULL,
        winner TEXT NOT NULL,
        loser TEXT NOT NULL,
        transferred BIGINT NOT NULL,
        bank_balance BIGINT NOT NULL,
        player_balance BIGINT NOT NULL,
        transaction_id TEXT NOT NULL,
        settled_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS rounds_bank_idx ON rounds (bank_id, settled_at DESC)`,
	`CREATE INDEX IF NOT EXISTS rounds_player_idx ON rounds (player_id, settled_at DESC)`,
}

// Migrate creates the tables used by the Postgres backends when missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
