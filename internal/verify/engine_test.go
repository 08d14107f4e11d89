package verify

import (
	"context"
	"testing"
	"time"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	freshVerdicts   []Verdict
	contentVerdicts []Verdict
	freshErr        error
	contentErr      error
	freshCalls      int
	contentCalls    int
}

func (f *fakeAnalyzer) CheckFreshness(_ context.Context, _ string, _ time.Time) (Verdict, error) {
	if f.freshErr != nil {
		return Verdict{}, f.freshErr
	}
	v := f.freshVerdicts[f.freshCalls]
	f.freshCalls++
	return v, nil
}

func (f *fakeAnalyzer) MatchContent(_ context.Context, _ string, _ string) (Verdict, error) {
	if f.contentErr != nil {
		return Verdict{}, f.contentErr
	}
	v := f.contentVerdicts[f.contentCalls]
	f.contentCalls++
	return v, nil
}

type fakeProofStore struct {
	proof *models.ProofSubmission
}

func (s *fakeProofStore) Create(_ context.Context, challengeID uuid.UUID) (*models.ProofSubmission, error) {
	s.proof = &models.ProofSubmission{
		ID:          uuid.New(),
		ChallengeID: challengeID,
		Stage:       models.ProofStageAwaitingMedia,
		Status:      models.ProofStatusPending,
	}
	return s.proof, nil
}

func (s *fakeProofStore) GetActiveByChallenge(_ context.Context, _ uuid.UUID) (*models.ProofSubmission, error) {
	if s.proof != nil && s.proof.Status == models.ProofStatusPending {
		return s.proof, nil
	}
	return nil, nil
}

func (s *fakeProofStore) Update(_ context.Context, p *models.ProofSubmission) error {
	s.proof = p
	return nil
}

type fakeChallengeStore struct {
	statuses map[uuid.UUID]string
}

func (s *fakeChallengeStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	if s.statuses == nil {
		s.statuses = map[uuid.UUID]string{}
	}
	s.statuses[id] = status
	return nil
}

type fakeLedger struct {
	credits   []int64
	debits    []int64
	kinds     []string
	creditErr error
}

func (l *fakeLedger) Credit(_ context.Context, _ uuid.UUID, amountPaise int64, kind, _ string, _ *uuid.UUID) (int64, error) {
	if l.creditErr != nil {
		return 0, l.creditErr
	}
	l.credits = append(l.credits, amountPaise)
	l.kinds = append(l.kinds, kind)
	return amountPaise, nil
}

func (l *fakeLedger) Debit(_ context.Context, _ uuid.UUID, amountPaise int64, kind, _ string, _ *uuid.UUID) (int64, error) {
	l.debits = append(l.debits, amountPaise)
	l.kinds = append(l.kinds, kind)
	return 0, nil
}

func newEngine(a *fakeAnalyzer) (*Engine, *fakeProofStore, *fakeChallengeStore, *fakeLedger) {
	proofs := &fakeProofStore{}
	challenges := &fakeChallengeStore{}
	ledger := &fakeLedger{}
	e := NewEngine(proofs, challenges, ledger, a, nil, 3, 2, 2, zap.NewNop())
	return e, proofs, challenges, ledger
}

func activeChallenge() *models.Challenge {
	return &models.Challenge{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Goal:       "go to the gym",
		StakePaise: 10000,
		Status:     models.ChallengeStatusActive,
	}
}

func TestSubmitPassCreditsDoubleStake(t *testing.T) {
	a := &fakeAnalyzer{
		freshVerdicts:   []Verdict{{Valid: true}},
		contentVerdicts: []Verdict{{Valid: true}},
	}
	e, proofs, challenges, ledger := newEngine(a)
	ch := activeChallenge()

	out, err := e.Submit(context.Background(), ch, "media-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result != ResultPassed {
		t.Errorf("result = %q", out.Result)
	}
	if out.RewardPaise != 20000 {
		t.Errorf("reward = %d, want 20000", out.RewardPaise)
	}
	if len(ledger.credits) != 1 || ledger.credits[0] != 20000 || ledger.kinds[0] != models.TransactionReward {
		t.Errorf("ledger credits = %v kinds = %v", ledger.credits, ledger.kinds)
	}
	if challenges.statuses[ch.ID] != models.ChallengeStatusCompleted {
		t.Errorf("challenge status = %q", challenges.statuses[ch.ID])
	}
	if proofs.proof.Status != models.ProofStatusPassed {
		t.Errorf("proof status = %q", proofs.proof.Status)
	}
}

func TestSubmitRewardCreditFailureKeepsChallengeOpen(t *testing.T) {
	a := &fakeAnalyzer{
		freshVerdicts:   []Verdict{{Valid: true}, {Valid: true}},
		contentVerdicts: []Verdict{{Valid: true}, {Valid: true}},
	}
	e, proofs, challenges, ledger := newEngine(a)
	ledger.creditErr = errs.ErrExternalService
	ch := activeChallenge()

	if _, err := e.Submit(context.Background(), ch, "media-1"); err == nil {
		t.Fatal("Submit should surface the credit failure")
	}
	// Nothing settled: the proof stays in content_check and the
	// challenge stays active, so a resubmission retries the payout.
	if got := challenges.statuses[ch.ID]; got != "" {
		t.Errorf("challenge status written = %q, want none", got)
	}
	if proofs.proof.Stage != models.ProofStageContentCheck {
		t.Errorf("proof stage = %q, want content_check", proofs.proof.Stage)
	}
	if proofs.proof.Status != models.ProofStatusPending {
		t.Errorf("proof status = %q, want pending", proofs.proof.Status)
	}

	ledger.creditErr = nil
	out, err := e.Submit(context.Background(), ch, "media-1")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if out.Result != ResultPassed || len(ledger.credits) != 1 {
		t.Errorf("resubmit result = %q credits = %v", out.Result, ledger.credits)
	}
	if challenges.statuses[ch.ID] != models.ChallengeStatusCompleted {
		t.Errorf("challenge status = %q", challenges.statuses[ch.ID])
	}
}

func TestSubmitTimestampRetriesThenPass(t *testing.T) {
	a := &fakeAnalyzer{
		freshVerdicts:   []Verdict{{Valid: false, Explanation: "no date visible"}, {Valid: false}, {Valid: true}},
		contentVerdicts: []Verdict{{Valid: true}},
	}
	e, proofs, _, _ := newEngine(a)
	ch := activeChallenge()
	ctx := context.Background()

	out, _ := e.Submit(ctx, ch, "media-1")
	if out.Result != ResultRetryTimestamp || out.Remaining != 2 {
		t.Fatalf("first attempt: %+v", out)
	}
	out, _ = e.Submit(ctx, ch, "media-2")
	if out.Result != ResultRetryTimestamp || out.Remaining != 1 {
		t.Fatalf("second attempt: %+v", out)
	}
	out, err := e.Submit(ctx, ch, "media-3")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result != ResultPassed {
		t.Errorf("result = %q", out.Result)
	}
	if proofs.proof.MetadataAttempts != 2 {
		t.Errorf("metadata_attempts = %d, want 2", proofs.proof.MetadataAttempts)
	}
}

func TestSubmitTimestampExhaustionForfeits(t *testing.T) {
	a := &fakeAnalyzer{
		freshVerdicts: []Verdict{{Valid: false}, {Valid: false}, {Valid: false}},
	}
	e, proofs, challenges, ledger := newEngine(a)
	ch := activeChallenge()
	ctx := context.Background()

	e.Submit(ctx, ch, "m1")
	e.Submit(ctx, ch, "m2")
	out, err := e.Submit(ctx, ch, "m3")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result != ResultFailedForfeit {
		t.Errorf("result = %q", out.Result)
	}
	if challenges.statuses[ch.ID] != models.ChallengeStatusFailed {
		t.Errorf("challenge status = %q", challenges.statuses[ch.ID])
	}
	if proofs.proof.Status != models.ProofStatusFailed {
		t.Errorf("proof status = %q", proofs.proof.Status)
	}
	// Forfeiture means no reversal, not a negative credit.
	if len(ledger.credits) != 0 {
		t.Errorf("unexpected ledger activity: %v", ledger.credits)
	}
}

func TestSubmitContentExhaustionForfeits(t *testing.T) {
	a := &fakeAnalyzer{
		freshVerdicts:   []Verdict{{Valid: true}, {Valid: true}},
		contentVerdicts: []Verdict{{Valid: false, Explanation: "unrelated image"}, {Valid: false}},
	}
	e, _, challenges, ledger := newEngine(a)
	ch := activeChallenge()
	ctx := context.Background()

	out, _ := e.Submit(ctx, ch, "m1")
	if out.Result != ResultRetryContent || out.Remaining != 1 {
		t.Fatalf("first content attempt: %+v", out)
	}
	out, err := e.Submit(ctx, ch, "m2")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result != ResultFailedForfeit {
		t.Errorf("result = %q", out.Result)
	}
	if challenges.statuses[ch.ID] != models.ChallengeStatusFailed {
		t.Errorf("challenge status = %q", challenges.statuses[ch.ID])
	}
	if len(ledger.credits) != 0 {
		t.Errorf("unexpected ledger activity: %v", ledger.credits)
	}
}

func TestSubmitAnalyzerOutageConsumesNoAttempt(t *testing.T) {
	a := &fakeAnalyzer{freshErr: errs.ErrExternalService}
	e, proofs, _, _ := newEngine(a)
	ch := activeChallenge()

	out, err := e.Submit(context.Background(), ch, "m1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Result != ResultUnavailable {
		t.Errorf("result = %q", out.Result)
	}
	if proofs.proof.MetadataAttempts != 0 {
		t.Errorf("metadata_attempts = %d, outage should not burn attempts", proofs.proof.MetadataAttempts)
	}
}
