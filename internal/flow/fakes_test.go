package flow

import (
	"context"
	"strings"
	"time"

	"github.com/bettask/backend/internal/ai"
	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/verify"
	"github.com/google/uuid"
)

type fakeGate struct {
	seen map[string]bool
}

func (g *fakeGate) Accept(_ context.Context, _, messageID string, _ time.Time) error {
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[messageID] {
		return errs.ErrDuplicateMessage
	}
	g.seen[messageID] = true
	return nil
}

func (g *fakeGate) Commit(_ context.Context, _ string, _ time.Time) error { return nil }

type memStateStore struct {
	states map[uuid.UUID]*models.ConversationState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: map[uuid.UUID]*models.ConversationState{}}
}

func (s *memStateStore) Get(_ context.Context, userID uuid.UUID) (*models.ConversationState, error) {
	return s.states[userID], nil
}

func (s *memStateStore) Save(_ context.Context, state *models.ConversationState) error {
	cp := *state
	s.states[state.UserID] = &cp
	return nil
}

func (s *memStateStore) Clear(_ context.Context, userID uuid.UUID) error {
	delete(s.states, userID)
	return nil
}

type memUsers struct {
	byPhone map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{byPhone: map[string]*models.User{}} }

func (u *memUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	return u.byPhone[phone], nil
}

func (u *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range u.byPhone {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (u *memUsers) Create(_ context.Context, phone string, email, name *string) (*models.User, error) {
	user := &models.User{ID: uuid.New(), PhoneNumber: phone, Email: email, DisplayName: name, CreatedAt: time.Now()}
	u.byPhone[phone] = user
	return user, nil
}

func (u *memUsers) UpdateLastActive(_ context.Context, _ uuid.UUID) error { return nil }

type memChallenges struct {
	items []*models.Challenge
}

func (c *memChallenges) Create(_ context.Context, userID uuid.UUID, goal string, stake int64, deadline time.Time, rec *models.Recurrence) (*models.Challenge, error) {
	ch := &models.Challenge{
		ID: uuid.New(), UserID: userID, Goal: goal, StakePaise: stake,
		Deadline: deadline, Status: models.ChallengeStatusActive, Recurrence: rec,
		CreatedAt: time.Now(),
	}
	c.items = append(c.items, ch)
	return ch, nil
}

func (c *memChallenges) GetByID(_ context.Context, id uuid.UUID) (*models.Challenge, error) {
	for _, ch := range c.items {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}

func (c *memChallenges) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*models.Challenge, error) {
	var out []*models.Challenge
	for _, ch := range c.items {
		if ch.UserID == userID && ch.Status == models.ChallengeStatusActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *memChallenges) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	list, _ := c.ListActiveByUser(ctx, userID)
	return len(list), nil
}

type memPayments struct {
	items []*models.PaymentRequest
}

func (p *memPayments) Create(_ context.Context, userID uuid.UUID, expected int64, payee string) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{
		ID: uuid.New(), UserID: userID, ExpectedPaise: expected,
		Status: models.PaymentStatusPending, PayeeHandle: payee, CreatedAt: time.Now(),
	}
	p.items = append(p.items, req)
	return req, nil
}

func (p *memPayments) GetByID(_ context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	for _, req := range p.items {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, nil
}

func (p *memPayments) GetPendingByUser(_ context.Context, userID uuid.UUID) (*models.PaymentRequest, error) {
	for i := len(p.items) - 1; i >= 0; i-- {
		if p.items[i].UserID == userID && p.items[i].Status == models.PaymentStatusPending {
			return p.items[i], nil
		}
	}
	return nil, nil
}

func (p *memPayments) Decide(_ context.Context, id uuid.UUID, status string, observed *int64) error {
	for _, req := range p.items {
		if req.ID == id {
			req.Status = status
			req.ObservedPaise = observed
		}
	}
	return nil
}

type memWithdrawals struct {
	items []*models.WithdrawalRequest
}

func (w *memWithdrawals) Create(_ context.Context, userID uuid.UUID, amount int64, upi string) (*models.WithdrawalRequest, error) {
	req := &models.WithdrawalRequest{
		ID: uuid.New(), UserID: userID, AmountPaise: amount, PayoutUPI: upi,
		Status: models.WithdrawalStatusPending, CreatedAt: time.Now(),
	}
	w.items = append(w.items, req)
	return req, nil
}

type memLedger struct {
	balances   map[uuid.UUID]int64
	kinds      []string
	balanceErr error
}

func newMemLedger() *memLedger { return &memLedger{balances: map[uuid.UUID]int64{}} }

func (l *memLedger) Debit(_ context.Context, userID uuid.UUID, amount int64, kind, _ string, _ *uuid.UUID) (int64, error) {
	if l.balances[userID] < amount {
		return 0, errs.ErrInsufficientBalance
	}
	l.balances[userID] -= amount
	l.kinds = append(l.kinds, kind)
	return l.balances[userID], nil
}

func (l *memLedger) Credit(_ context.Context, userID uuid.UUID, amount int64, kind, _ string, _ *uuid.UUID) (int64, error) {
	l.balances[userID] += amount
	l.kinds = append(l.kinds, kind)
	return l.balances[userID], nil
}

func (l *memLedger) Balance(_ context.Context, userID uuid.UUID) (int64, error) {
	if l.balanceErr != nil {
		return 0, l.balanceErr
	}
	return l.balances[userID], nil
}

type memReminders struct {
	created   int
	cancelled int
}

func (r *memReminders) Create(_ context.Context, _, _ uuid.UUID, _ time.Time) error {
	r.created++
	return nil
}

func (r *memReminders) CancelForChallenge(_ context.Context, _ uuid.UUID) error {
	r.cancelled++
	return nil
}

type fakeVerifier struct {
	outcome *verify.Outcome
}

func (v *fakeVerifier) Submit(_ context.Context, _ *models.Challenge, _ string) (*verify.Outcome, error) {
	return v.outcome, nil
}

type fakeEvidence struct {
	evidence *ai.PaymentEvidence
	err      error
}

func (e *fakeEvidence) ReadPaymentEvidence(_ context.Context, _, _ string, _ time.Time) (*ai.PaymentEvidence, error) {
	return e.evidence, e.err
}

type fakeMedia struct{}

func (fakeMedia) ResolveMedia(_ context.Context, ref string) (string, error) {
	return "https://media.local/" + ref, nil
}

type fakeSender struct {
	sent []string
}

func (s *fakeSender) Send(_ context.Context, _, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSender) last() string {
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

func (s *fakeSender) lastContains(sub string) bool {
	return strings.Contains(strings.ToLower(s.last()), strings.ToLower(sub))
}
