package asset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists asset types and holdings.
type Repository interface {
	CreateAssetType(ctx context.Context, at AssetType) error
	GetAssetType(ctx context.Context, id string) (AssetType, error)
	CreateHolding(ctx context.Context, h Holding) error
	GetHolding(ctx context.Context, address string) (Holding, error)
	ListHoldingsByOwner(ctx context.Context, owner string) ([]Holding, error)
	// AdjustHoldings applies every delta or none; no holding may go negative.
	AdjustHoldings(ctx context.Context, deltas []Delta) error
}

// PostgresRepository stores asset types and holdings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed asset repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateAssetType(ctx context.Context, at AssetType) error {
	_, err := r.db.Exec(ctx, `INSERT INTO asset_types (id, symbol, decimals, authority, created_at)
        VALUES ($1, $2, $3, $4, $5)`, at.ID, at.Symbol, at.Decimals, at.Authority, at.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) GetAssetType(ctx context.Context, id string) (AssetType, error) {
	var at AssetType
	var createdAt time.Time
	err := r.db.QueryRow(ctx, `SELECT id, symbol, decimals, authority, created_at FROM asset_types WHERE id = $1`, id).
		Scan(&at.ID, &at.Symbol, &at.Decimals, &at.Authority, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssetType{}, ErrAssetTypeNotFound
		}
		return AssetType{}, err
	}
	at.CreatedAt = createdAt.UTC()
	return at, nil
}

func (r *PostgresRepository) CreateHolding(ctx context.Context, h Holding) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO holdings (address, owner, asset_type_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5) ON CONFLICT (address) DO NOTHING`, h.Address, h.Owner, h.AssetTypeID, h.Amount, h.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHoldingExists
	}
	return nil
}

func (r *PostgresRepository) GetHolding(ctx context.Context, address string) (Holding, error) {
	return scanHolding(r.db.QueryRow(ctx, `SELECT address, owner, asset_type_id, amount, created_at
        FROM holdings WHERE address = $1`, address))
}

func (r *PostgresRepository) ListHoldingsByOwner(ctx context.Context, owner string) ([]Holding, error) {
	rows, err := r.db.Query(ctx, `SELECT address, owner, asset_type_id, amount, created_at
        FROM holdings WHERE owner = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AdjustHoldings(ctx context.Context, deltas []Delta) error {
	merged := mergeDeltas(deltas)
	addresses := make([]string, 0, len(merged))
	for addr := range merged {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, addr := range addresses {
		var amount int64
		if err := tx.QueryRow(ctx, `SELECT amount FROM holdings WHERE address = $1 FOR UPDATE`, addr).Scan(&amount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("holding %s: %w", addr, ErrHoldingNotFound)
			}
			return err
		}
		if amount+merged[addr] < 0 {
			return ErrInsufficientHolding
		}
		if _, err := tx.Exec(ctx, `UPDATE holdings SET amount = amount + $1 WHERE address = $2`, merged[addr], addr); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanHolding(row pgx.Row) (Holding, error) {
	var h Holding
	var createdAt time.Time
	if err := row.Scan(&h.Address, &h.Owner, &h.AssetTypeID, &h.Amount, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Holding{}, ErrHoldingNotFound
		}
		return Holding{}, err
	}
	h.CreatedAt = createdAt.UTC()
	return h, nil
}

func mergeDeltas(deltas []Delta) map[string]int64 {
	merged := make(map[string]int64, len(deltas))
	for _, d := range deltas {
		merged[d.Address] += d.Amount
	}
	return merged
}
