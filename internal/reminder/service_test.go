package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeStore struct {
	due  []*repositories.Reminder
	sent []uuid.UUID
}

func (s *fakeStore) Due(_ context.Context, _ time.Time) ([]*repositories.Reminder, error) {
	return s.due, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id uuid.UUID) error {
	s.sent = append(s.sent, id)
	return nil
}

type fakeUsers struct {
	user *models.User
}

func (u *fakeUsers) GetByID(_ context.Context, _ uuid.UUID) (*models.User, error) {
	return u.user, nil
}

type fakeChallenges struct {
	challenge *models.Challenge
}

func (c *fakeChallenges) GetByID(_ context.Context, _ uuid.UUID) (*models.Challenge, error) {
	return c.challenge, nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(_ context.Context, _, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func TestProcessDueSendsAndMarks(t *testing.T) {
	rem := &repositories.Reminder{ID: uuid.New(), ChallengeID: uuid.New(), UserID: uuid.New(), DueAt: time.Now()}
	store := &fakeStore{due: []*repositories.Reminder{rem}}
	sender := &fakeSender{}
	svc := NewService(store,
		&fakeUsers{user: &models.User{ID: rem.UserID, PhoneNumber: "+911234"}},
		&fakeChallenges{challenge: &models.Challenge{ID: rem.ChallengeID, Goal: "gym", StakePaise: 10000, Status: models.ChallengeStatusActive, Deadline: time.Now().Add(2 * time.Hour)}},
		sender, nil, 2, zap.NewNop())

	if err := svc.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "gym") {
		t.Errorf("sent = %v", sender.sent)
	}
	if len(store.sent) != 1 || store.sent[0] != rem.ID {
		t.Errorf("marked = %v", store.sent)
	}
}

func TestProcessDueSkipsSettledChallenge(t *testing.T) {
	rem := &repositories.Reminder{ID: uuid.New(), ChallengeID: uuid.New(), UserID: uuid.New()}
	store := &fakeStore{due: []*repositories.Reminder{rem}}
	sender := &fakeSender{}
	svc := NewService(store,
		&fakeUsers{user: &models.User{}},
		&fakeChallenges{challenge: &models.Challenge{Status: models.ChallengeStatusCompleted}},
		sender, nil, 2, zap.NewNop())

	if err := svc.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("reminded about a settled challenge")
	}
	if len(store.sent) != 1 {
		t.Error("settled reminder should still be marked")
	}
}

func TestProcessDueRetriesOnSendFailure(t *testing.T) {
	rem := &repositories.Reminder{ID: uuid.New(), ChallengeID: uuid.New(), UserID: uuid.New()}
	store := &fakeStore{due: []*repositories.Reminder{rem}}
	sender := &fakeSender{err: errors.New("bridge down")}
	svc := NewService(store,
		&fakeUsers{user: &models.User{PhoneNumber: "+911234"}},
		&fakeChallenges{challenge: &models.Challenge{Goal: "gym", Status: models.ChallengeStatusActive, Deadline: time.Now()}},
		sender, nil, 2, zap.NewNop())

	if err := svc.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(store.sent) != 0 {
		t.Error("failed send must leave the reminder due")
	}
}
