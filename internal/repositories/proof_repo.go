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

type ProofRepo struct {
	pool *pgxpool.Pool
}

func NewProofRepo(pool *pgxpool.Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

func (r *ProofRepo) Create(ctx context.Context, challengeID uuid.UUID) (*models.ProofSubmission, error) {
	var p models.ProofSubmission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO proof_submissions (challenge_id, stage, status)
		VALUES ($1, $2, $3)
		RETURNING id, challenge_id, stage, status, metadata_attempts, ai_attempts, media_ref, created_at, updated_at
	`, challengeID, models.ProofStageAwaitingMedia, models.ProofStatusPending).Scan(
		&p.ID, &p.ChallengeID, &p.Stage, &p.Status, &p.MetadataAttempts, &p.AIAttempts, &p.MediaRef, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveByChallenge returns the pending submission for the challenge,
// or nil, nil when none is in flight.
func (r *ProofRepo) GetActiveByChallenge(ctx context.Context, challengeID uuid.UUID) (*models.ProofSubmission, error) {
	var p models.ProofSubmission
	err := r.pool.QueryRow(ctx, `
		SELECT id, challenge_id, stage, status, metadata_attempts, ai_attempts, media_ref, created_at, updated_at
		FROM proof_submissions
		WHERE challenge_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1
	`, challengeID, models.ProofStatusPending).Scan(
		&p.ID, &p.ChallengeID, &p.Stage, &p.Status, &p.MetadataAttempts, &p.AIAttempts, &p.MediaRef, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProofRepo) Update(ctx context.Context, p *models.ProofSubmission) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE proof_submissions
		SET stage = $1, status = $2, metadata_attempts = $3, ai_attempts = $4, media_ref = $5, updated_at = $6
		WHERE id = $7
	`, p.Stage, p.Status, p.MetadataAttempts, p.AIAttempts, p.MediaRef, time.Now(), p.ID)
	return err
}
