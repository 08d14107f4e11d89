// Package reminder nudges users about challenges approaching their
// deadline. The worker binary drives it on a ticker.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/bettask/backend/internal/events"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/repositories"
	"github.com/bettask/backend/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Challenges interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
}

type Store interface {
	Due(ctx context.Context, now time.Time) ([]*repositories.Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store            Store
	users            Users
	challenges       Challenges
	sender           transport.Sender
	publisher        events.Publisher // optional
	rewardMultiplier int64
	log              *zap.Logger
}

func NewService(store Store, users Users, challenges Challenges, sender transport.Sender, publisher events.Publisher, rewardMultiplier int64, log *zap.Logger) *Service {
	return &Service{store: store, users: users, challenges: challenges, sender: sender, publisher: publisher, rewardMultiplier: rewardMultiplier, log: log}
}

// ProcessDue sends every due reminder. A reminder whose challenge is no
// longer active is marked sent without a message. Send failures leave the
// reminder due so the next tick retries it.
func (s *Service) ProcessDue(ctx context.Context) error {
	due, err := s.store.Due(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, rem := range due {
		challenge, err := s.challenges.GetByID(ctx, rem.ChallengeID)
		if err != nil {
			s.log.Error("reminder challenge lookup failed", zap.String("reminder_id", rem.ID.String()), zap.Error(err))
			continue
		}
		if challenge == nil || challenge.Status != models.ChallengeStatusActive {
			if err := s.store.MarkSent(ctx, rem.ID); err != nil {
				s.log.Error("reminder mark failed", zap.String("reminder_id", rem.ID.String()), zap.Error(err))
			}
			continue
		}

		user, err := s.users.GetByID(ctx, rem.UserID)
		if err != nil {
			s.log.Error("reminder user lookup failed", zap.String("reminder_id", rem.ID.String()), zap.Error(err))
			continue
		}

		text := fmt.Sprintf("⏰ Reminder: %q is due by %s. Say \"done\" and send proof to collect %s!",
			challenge.Goal,
			challenge.Deadline.Format("15:04"),
			models.FormatINR(challenge.StakePaise*s.rewardMultiplier))
		if err := s.sender.Send(ctx, user.PhoneNumber, text); err != nil {
			s.log.Warn("reminder send failed, will retry next tick",
				zap.String("reminder_id", rem.ID.String()), zap.Error(err))
			continue
		}

		if err := s.store.MarkSent(ctx, rem.ID); err != nil {
			s.log.Error("reminder mark failed", zap.String("reminder_id", rem.ID.String()), zap.Error(err))
		}
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, events.StreamBot, events.Event{
				Type: events.EventReminderDue,
				Payload: map[string]any{
					"reminder_id":  rem.ID.String(),
					"challenge_id": rem.ChallengeID.String(),
				},
			})
		}
	}
	return nil
}
