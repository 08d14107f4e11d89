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

type ChallengeRepo struct {
	pool *pgxpool.Pool
}

func NewChallengeRepo(pool *pgxpool.Pool) *ChallengeRepo {
	return &ChallengeRepo{pool: pool}
}

func (r *ChallengeRepo) Create(ctx context.Context, userID uuid.UUID, goal string, stakePaise int64, deadline time.Time, rec *models.Recurrence) (*models.Challenge, error) {
	var freq, dur *string
	if rec != nil {
		freq = &rec.Frequency
		d := rec.Duration
		dur = &d
	}
	var c models.Challenge
	var f, du *string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO challenges (user_id, goal, stake_paise, deadline, status, frequency, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, goal, stake_paise, deadline, status, frequency, duration, created_at, updated_at
	`, userID, goal, stakePaise, deadline, models.ChallengeStatusActive, freq, dur).Scan(
		&c.ID, &c.UserID, &c.Goal, &c.StakePaise, &c.Deadline, &c.Status, &f, &du, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if f != nil {
		c.Recurrence = &models.Recurrence{Frequency: *f}
		if du != nil {
			c.Recurrence.Duration = *du
		}
	}
	return &c, nil
}

func (r *ChallengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, goal, stake_paise, deadline, status, frequency, duration, created_at, updated_at
		FROM challenges WHERE id = $1
	`, id)
	c, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChallengeRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Challenge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, goal, stake_paise, deadline, status, frequency, duration, created_at, updated_at
		FROM challenges WHERE user_id = $1 AND status = $2
		ORDER BY created_at
	`, userID, models.ChallengeStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChallengeRepo) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenges WHERE user_id = $1 AND status = $2
	`, userID, models.ChallengeStatusActive).Scan(&n)
	return n, err
}

func (r *ChallengeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE challenges SET status = $1, updated_at = $2 WHERE id = $3
	`, status, time.Now(), id)
	return err
}

// ListExpired returns active challenges whose deadline has passed.
func (r *ChallengeRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.Challenge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, goal, stake_paise, deadline, status, frequency, duration, created_at, updated_at
		FROM challenges WHERE status = $1 AND deadline < $2
	`, models.ChallengeStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChallenge(row pgx.Row) (*models.Challenge, error) {
	var c models.Challenge
	var freq, dur *string
	err := row.Scan(&c.ID, &c.UserID, &c.Goal, &c.StakePaise, &c.Deadline, &c.Status, &freq, &dur, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if freq != nil {
		c.Recurrence = &models.Recurrence{Frequency: *freq}
		if dur != nil {
			c.Recurrence.Duration = *dur
		}
	}
	return &c, nil
}
