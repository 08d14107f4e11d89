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

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) Create(ctx context.Context, userID uuid.UUID, expectedPaise int64, payeeHandle string) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_requests (user_id, expected_paise, status, payee_handle)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, expected_paise, observed_paise, status, payee_handle, created_at, decided_at
	`, userID, expectedPaise, models.PaymentStatusPending, payeeHandle).Scan(
		&p.ID, &p.UserID, &p.ExpectedPaise, &p.ObservedPaise, &p.Status, &p.PayeeHandle, &p.CreatedAt, &p.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, expected_paise, observed_paise, status, payee_handle, created_at, decided_at
		FROM payment_requests WHERE id = $1
	`, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPendingByUser returns the most recent open request for the user,
// or nil, nil when there is none.
func (r *PaymentRepo) GetPendingByUser(ctx context.Context, userID uuid.UUID) (*models.PaymentRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, expected_paise, observed_paise, status, payee_handle, created_at, decided_at
		FROM payment_requests
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1
	`, userID, models.PaymentStatusPending)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepo) Decide(ctx context.Context, id uuid.UUID, status string, observedPaise *int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_requests
		SET status = $1, observed_paise = $2, decided_at = $3
		WHERE id = $4
	`, status, observedPaise, time.Now(), id)
	return err
}

// ListExpired returns pending requests older than the TTL.
func (r *PaymentRepo) ListExpired(ctx context.Context, olderThan time.Time) ([]*models.PaymentRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, expected_paise, observed_paise, status, payee_handle, created_at, decided_at
		FROM payment_requests
		WHERE status = $1 AND created_at < $2
	`, models.PaymentStatusPending, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	err := row.Scan(&p.ID, &p.UserID, &p.ExpectedPaise, &p.ObservedPaise, &p.Status, &p.PayeeHandle, &p.CreatedAt, &p.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
