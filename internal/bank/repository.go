package bank

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bank records.
type Repository interface {
	Create(ctx context.Context, b Bank) error
	Get(ctx context.Context, id string) (Bank, error)
}

// PostgresRepository stores banks in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed bank repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b Bank) error {
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO banks (id, authority, permitted_asset_type, account_code, round_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, b.Authority, b.PermittedAssetType, b.AccountCode, b.RoundCount, b.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Bank, error) {
	bankID, err := uuid.Parse(id)
	if err != nil {
		return Bank{}, ErrNotFound
	}
	var (
		b         Bank
		idVal     uuid.UUID
		createdAt time.Time
	)
	err = r.db.QueryRow(ctx, `SELECT id, authority, permitted_asset_type, account_code, round_count, created_at
        FROM banks WHERE id = $1`, bankID).
		Scan(&idVal, &b.Authority, &b.PermittedAssetType, &b.AccountCode, &b.RoundCount, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bank{}, ErrNotFound
		}
		return Bank{}, err
	}
	b.ID = idVal.String()
	b.CreatedAt = createdAt.UTC()
	return b, nil
}
