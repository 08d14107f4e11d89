// Package ledger owns every balance mutation. Wallets are never written
// outside this package.
package ledger

import (
	"context"
	"errors"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Service struct {
	pool  *pgxpool.Pool
	audit *repositories.AuditRepo
	log   *zap.Logger
}

func NewService(pool *pgxpool.Pool, audit *repositories.AuditRepo, log *zap.Logger) *Service {
	return &Service{pool: pool, audit: audit, log: log}
}

// Debit atomically subtracts amountPaise from the wallet and records the
// transaction. The conditional UPDATE is the balance check: a concurrent
// debit that would overdraw matches zero rows and returns
// ErrInsufficientBalance without touching the wallet.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error) {
	if amountPaise <= 0 {
		return 0, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !models.IsValidTransactionKind(kind) {
		return 0, &errs.ValidationError{Field: "kind", Reason: "unknown transaction kind"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance_paise = balance_paise - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance_paise >= $1
		RETURNING balance_paise
	`, amountPaise, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount_paise, kind, description, challenge_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, -amountPaise, kind, description, challengeID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.log.Info("wallet debited",
		zap.String("user_id", userID.String()),
		zap.Int64("amount_paise", amountPaise),
		zap.String("kind", kind))
	_ = s.audit.Log(ctx, &userID, "system", "wallet.debit", "wallet", &userID, map[string]any{
		"amount_paise": amountPaise,
		"kind":         kind,
	})
	return balance, nil
}

// Credit adds amountPaise to the wallet and records the transaction.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error) {
	if amountPaise <= 0 {
		return 0, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !models.IsValidTransactionKind(kind) {
		return 0, &errs.ValidationError{Field: "kind", Reason: "unknown transaction kind"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance_paise = balance_paise + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING balance_paise
	`, amountPaise, userID).Scan(&balance)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount_paise, kind, description, challenge_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, amountPaise, kind, description, challengeID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.log.Info("wallet credited",
		zap.String("user_id", userID.String()),
		zap.Int64("amount_paise", amountPaise),
		zap.String("kind", kind))
	_ = s.audit.Log(ctx, &userID, "system", "wallet.credit", "wallet", &userID, map[string]any{
		"amount_paise": amountPaise,
		"kind":         kind,
	})
	return balance, nil
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `
		SELECT balance_paise FROM wallets WHERE user_id = $1
	`, userID).Scan(&balance)
	return balance, err
}

func (s *Service) Wallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, balance_paise, updated_at FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.BalancePaise, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount_paise, kind, description, challenge_id, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AmountPaise, &t.Kind, &t.Description, &t.ChallengeID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
