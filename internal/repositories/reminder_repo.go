package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Reminder struct {
	ID          uuid.UUID
	ChallengeID uuid.UUID
	UserID      uuid.UUID
	DueAt       time.Time
	SentAt      *time.Time
}

type ReminderRepo struct {
	pool *pgxpool.Pool
}

func NewReminderRepo(pool *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{pool: pool}
}

func (r *ReminderRepo) Create(ctx context.Context, challengeID, userID uuid.UUID, dueAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminders (challenge_id, user_id, due_at) VALUES ($1, $2, $3)
	`, challengeID, userID, dueAt)
	return err
}

// Due returns unsent reminders whose due time has passed.
func (r *ReminderRepo) Due(ctx context.Context, now time.Time) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, challenge_id, user_id, due_at, sent_at
		FROM reminders
		WHERE sent_at IS NULL AND due_at <= $1
		ORDER BY due_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.ChallengeID, &rem.UserID, &rem.DueAt, &rem.SentAt); err != nil {
			return nil, err
		}
		out = append(out, &rem)
	}
	return out, rows.Err()
}

func (r *ReminderRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE reminders SET sent_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

// CancelForChallenge drops pending reminders once a challenge leaves the
// active state.
func (r *ReminderRepo) CancelForChallenge(ctx context.Context, challengeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM reminders WHERE challenge_id = $1 AND sent_at IS NULL
	`, challengeID)
	return err
}
