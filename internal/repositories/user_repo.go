package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/bettask/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts the user and their empty wallet in one transaction.
// A wallet never exists without a user and vice versa.
func (r *UserRepo) Create(ctx context.Context, phoneNumber string, email, displayName *string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var u models.User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (phone_number, email, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, phone_number, email, display_name, created_at, last_active_at
	`, phoneNumber, email, displayName).Scan(
		&u.ID, &u.PhoneNumber, &u.Email, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance_paise) VALUES ($1, 0)
	`, u.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPhone returns nil, nil when no user exists for the address.
func (r *UserRepo) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone_number, email, display_name, created_at, last_active_at
		FROM users WHERE phone_number = $1
	`, phoneNumber).Scan(&u.ID, &u.PhoneNumber, &u.Email, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone_number, email, display_name, created_at, last_active_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.PhoneNumber, &u.Email, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone_number, email, display_name, created_at, last_active_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.PhoneNumber, &u.Email, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
