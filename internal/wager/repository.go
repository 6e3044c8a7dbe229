package wager

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 50

// RoundRepository stores settled rounds.
type RoundRepository interface {
	Save(ctx context.Context, r Round) error
	Get(ctx context.Context, id string) (Round, error)
	// ListByBank and ListByPlayer return the newest rounds first.
	ListByBank(ctx context.Context, bankID string, limit int) ([]Round, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Round, error)
}

// PostgresRoundRepository stores rounds in PostgreSQL.
type PostgresRoundRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRoundRepository builds a Postgres round repository.
func NewPostgresRoundRepository(db *pgxpool.Pool) *PostgresRoundRepository {
	return &PostgresRoundRepository{db: db}
}

const roundColumns = `id, bank_id, player_id, holding_address, asset_type_id, amount, result, eligible, bit,
        winner, loser, transferred, bank_balance, player_balance, transaction_id, settled_at`

func (r *PostgresRoundRepository) Save(ctx context.Context, round Round) error {
	id, err := uuid.Parse(round.ID)
	if err != nil {
		return err
	}
	bankID, err := uuid.Parse(round.BankID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO rounds (`+roundColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id, bankID, round.PlayerID, round.HoldingAddress, round.AssetTypeID, round.Amount, string(round.Result),
		round.Eligible, round.Bit, round.Winner, round.Loser, round.Transferred, round.BankBalance,
		round.PlayerBalance, round.TransactionID, round.SettledAt.UTC())
	return err
}

func (r *PostgresRoundRepository) Get(ctx context.Context, id string) (Round, error) {
	roundID, err := uuid.Parse(id)
	if err != nil {
		return Round{}, ErrRoundNotFound
	}
	return scanRound(r.db.QueryRow(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, roundID))
}

func (r *PostgresRoundRepository) ListByBank(ctx context.Context, bankID string, limit int) ([]Round, error) {
	id, err := uuid.Parse(bankID)
	if err != nil {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+roundColumns+` FROM rounds WHERE bank_id = $1 ORDER BY settled_at DESC LIMIT $2`, id, normalizeLimit(limit))
}

func (r *PostgresRoundRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]Round, error) {
	return r.list(ctx, `SELECT `+roundColumns+` FROM rounds WHERE player_id = $1 ORDER BY settled_at DESC LIMIT $2`, playerID, normalizeLimit(limit))
}

func (r *PostgresRoundRepository) list(ctx context.Context, query string, args ...any) ([]Round, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, round)
	}
	return out, rows.Err()
}

func scanRound(row pgx.Row) (Round, error) {
	var (
		round     Round
		id        uuid.UUID
		bankID    uuid.UUID
		result    string
		bit       int16
		settledAt time.Time
	)
	err := row.Scan(&id, &bankID, &round.PlayerID, &round.HoldingAddress, &round.AssetTypeID, &round.Amount,
		&result, &round.Eligible, &bit, &round.Winner, &round.Loser, &round.Transferred, &round.BankBalance,
		&round.PlayerBalance, &round.TransactionID, &settledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Round{}, ErrRoundNotFound
		}
		return Round{}, err
	}
	round.ID = id.String()
	round.BankID = bankID.String()
	round.Result = Result(result)
	round.Bit = int(bit)
	round.SettledAt = settledAt.UTC()
	return round, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
