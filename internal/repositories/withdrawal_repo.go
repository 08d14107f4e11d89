package repositories

import (
	"context"
	"errors"

	"github.com/bettask/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func (r *WithdrawalRepo) Create(ctx context.Context, userID uuid.UUID, amountPaise int64, payoutUPI string) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.pool.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (user_id, amount_paise, payout_upi, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount_paise, payout_upi, status, created_at
	`, userID, amountPaise, payoutUPI, models.WithdrawalStatusPending).Scan(
		&w.ID, &w.UserID, &w.AmountPaise, &w.PayoutUPI, &w.Status, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, amount_paise, payout_upi, status, created_at
		FROM withdrawal_requests WHERE id = $1
	`, id).Scan(&w.ID, &w.UserID, &w.AmountPaise, &w.PayoutUPI, &w.Status, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepo) ListPending(ctx context.Context) ([]*models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount_paise, payout_upi, status, created_at
		FROM withdrawal_requests WHERE status = $1
		ORDER BY created_at
	`, models.WithdrawalStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := rows.Scan(&w.ID, &w.UserID, &w.AmountPaise, &w.PayoutUPI, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE withdrawal_requests SET status = $1 WHERE id = $2`, status, id)
	return err
}
