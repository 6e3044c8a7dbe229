package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateDevice(ctx context.Context, id, deviceID string) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, phone, tier, pin_hash, device_id, token_version, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (phone) DO NOTHING`,
		userID, user.Phone, user.Tier, user.PINHash, user.DeviceID, user.TokenVersion, user.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserExists
	}
	return nil
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// UpdateDevice stores the users bound device identifier.
func (r *PostgresRepository) UpdateDevice(ctx context.Context, id, deviceID string) error {
	return r.exec(ctx, `UPDATE users SET device_id = $1 WHERE id = $2`, deviceID, id)
}

// UpdateTokenVersion invalidates previously issued tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, value any, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Phone, &user.Tier, &user.PINHash, &user.DeviceID, &user.TokenVersion, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
