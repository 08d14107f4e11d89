// Package verify runs proof media through the two-stage check pipeline
// and settles the challenge: reward on pass, stake forfeiture when the
// attempt budget runs out.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/events"
	"github.com/bettask/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Verdict is the analyzer's answer for one check.
type Verdict struct {
	Valid       bool
	Confidence  float64
	Explanation string
}

// Analyzer is the slice of the inference client the engine needs.
type Analyzer interface {
	CheckFreshness(ctx context.Context, mediaRef string, now time.Time) (Verdict, error)
	MatchContent(ctx context.Context, mediaRef, goal string) (Verdict, error)
}

type ProofStore interface {
	Create(ctx context.Context, challengeID uuid.UUID) (*models.ProofSubmission, error)
	GetActiveByChallenge(ctx context.Context, challengeID uuid.UUID) (*models.ProofSubmission, error)
	Update(ctx context.Context, p *models.ProofSubmission) error
}

type ChallengeStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Ledger interface {
	Credit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error)
	Debit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error)
}

// Result classes for the orchestrator's reply.
const (
	ResultPassed         = "passed"
	ResultFailedForfeit  = "failed_forfeit"
	ResultRetryTimestamp = "retry_timestamp"
	ResultRetryContent   = "retry_content"
	ResultUnavailable    = "unavailable"
)

type Outcome struct {
	Result      string
	Remaining   int
	Explanation string
	RewardPaise int64
}

type Engine struct {
	proofs     ProofStore
	challenges ChallengeStore
	ledger     Ledger
	analyzer   Analyzer
	publisher  events.Publisher

	metadataMaxAttempts int
	aiMaxAttempts       int
	rewardMultiplier    int64
	log                 *zap.Logger
}

func NewEngine(proofs ProofStore, challenges ChallengeStore, ledger Ledger, analyzer Analyzer, publisher events.Publisher, metadataMax, aiMax int, rewardMultiplier int64, log *zap.Logger) *Engine {
	return &Engine{
		proofs:              proofs,
		challenges:          challenges,
		ledger:              ledger,
		analyzer:            analyzer,
		publisher:           publisher,
		metadataMaxAttempts: metadataMax,
		aiMaxAttempts:       aiMax,
		rewardMultiplier:    rewardMultiplier,
		log:                 log,
	}
}

// Submit runs one piece of proof media through the pipeline. A single
// call covers both checks when they pass back to back; a failed check
// returns a retry outcome and waits for the next submission.
// An unreachable analyzer never consumes an attempt.
func (e *Engine) Submit(ctx context.Context, challenge *models.Challenge, mediaRef string) (*Outcome, error) {
	proof, err := e.proofs.GetActiveByChallenge(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}
	if proof == nil {
		proof, err = e.proofs.Create(ctx, challenge.ID)
		if err != nil {
			return nil, err
		}
	}
	proof.MediaRef = &mediaRef

	if proof.Stage == models.ProofStageAwaitingMedia {
		if err := e.advance(ctx, proof, models.ProofStageTimestampCheck); err != nil {
			return nil, err
		}
	}

	if proof.Stage == models.ProofStageTimestampCheck {
		out, done, err := e.runTimestampCheck(ctx, challenge, proof, mediaRef)
		if err != nil || done {
			return out, err
		}
	}

	return e.runContentCheck(ctx, challenge, proof, mediaRef)
}

func (e *Engine) runTimestampCheck(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission, mediaRef string) (*Outcome, bool, error) {
	verdict, err := e.analyzer.CheckFreshness(ctx, mediaRef, time.Now())
	if errors.Is(err, errs.ErrExternalService) {
		e.log.Warn("freshness check unavailable", zap.Error(err))
		return &Outcome{Result: ResultUnavailable}, true, nil
	}
	if err != nil {
		return nil, true, err
	}

	if !verdict.Valid {
		proof.MetadataAttempts++
		if proof.MetadataAttempts >= e.metadataMaxAttempts {
			if err := e.fail(ctx, challenge, proof); err != nil {
				return nil, true, err
			}
			return &Outcome{Result: ResultFailedForfeit, Explanation: verdict.Explanation}, true, nil
		}
		if err := e.proofs.Update(ctx, proof); err != nil {
			return nil, true, err
		}
		return &Outcome{
			Result:      ResultRetryTimestamp,
			Remaining:   e.metadataMaxAttempts - proof.MetadataAttempts,
			Explanation: verdict.Explanation,
		}, true, nil
	}

	if err := e.advance(ctx, proof, models.ProofStageContentCheck); err != nil {
		return nil, true, err
	}
	return nil, false, nil
}

func (e *Engine) runContentCheck(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission, mediaRef string) (*Outcome, error) {
	verdict, err := e.analyzer.MatchContent(ctx, mediaRef, challenge.Goal)
	if errors.Is(err, errs.ErrExternalService) {
		e.log.Warn("content check unavailable", zap.Error(err))
		return &Outcome{Result: ResultUnavailable}, nil
	}
	if err != nil {
		return nil, err
	}

	if !verdict.Valid {
		proof.AIAttempts++
		if proof.AIAttempts >= e.aiMaxAttempts {
			if err := e.fail(ctx, challenge, proof); err != nil {
				return nil, err
			}
			return &Outcome{Result: ResultFailedForfeit, Explanation: verdict.Explanation}, nil
		}
		if err := e.proofs.Update(ctx, proof); err != nil {
			return nil, err
		}
		return &Outcome{
			Result:      ResultRetryContent,
			Remaining:   e.aiMaxAttempts - proof.AIAttempts,
			Explanation: verdict.Explanation,
		}, nil
	}

	return e.pass(ctx, challenge, proof)
}

// pass credits the reward before any terminal write. A failed credit
// leaves the proof in content_check and the challenge active, so the
// next submission re-runs the check and the payout is retried rather
// than lost behind a completed status.
func (e *Engine) pass(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission) (*Outcome, error) {
	reward := challenge.StakePaise * e.rewardMultiplier
	if _, err := e.ledger.Credit(ctx, challenge.UserID, reward, models.TransactionReward,
		fmt.Sprintf("reward for %q", challenge.Goal), &challenge.ID); err != nil {
		return nil, err
	}

	if err := e.settlePassed(ctx, challenge, proof); err != nil {
		// The challenge is still resubmittable; take the reward back so
		// the retry cannot pay twice.
		if _, derr := e.ledger.Debit(ctx, challenge.UserID, reward, models.TransactionDeduction,
			fmt.Sprintf("reward reversal for %q", challenge.Goal), &challenge.ID); derr != nil {
			e.log.Error("reward reversal failed",
				zap.String("challenge_id", challenge.ID.String()),
				zap.Int64("reward_paise", reward),
				zap.Error(derr))
		}
		return nil, err
	}
	e.publishProofDecided(ctx, challenge, proof)

	e.log.Info("challenge passed verification",
		zap.String("challenge_id", challenge.ID.String()),
		zap.Int64("reward_paise", reward))
	return &Outcome{Result: ResultPassed, RewardPaise: reward}, nil
}

func (e *Engine) settlePassed(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission) error {
	if err := e.advance(ctx, proof, models.ProofStagePassed); err != nil {
		return err
	}
	proof.Status = models.ProofStatusPassed
	if err := e.proofs.Update(ctx, proof); err != nil {
		return err
	}
	return e.transitionChallenge(ctx, challenge, models.ChallengeStatusCompleted)
}

// fail marks the proof and challenge failed. The stake stays deducted;
// forfeiture is the absence of a reversal.
func (e *Engine) fail(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission) error {
	if err := e.advance(ctx, proof, models.ProofStageFailed); err != nil {
		return err
	}
	proof.Status = models.ProofStatusFailed
	if err := e.proofs.Update(ctx, proof); err != nil {
		return err
	}
	if err := e.transitionChallenge(ctx, challenge, models.ChallengeStatusFailed); err != nil {
		return err
	}
	e.publishProofDecided(ctx, challenge, proof)
	return nil
}

func (e *Engine) publishProofDecided(ctx context.Context, challenge *models.Challenge, proof *models.ProofSubmission) {
	if e.publisher == nil {
		return
	}
	_ = e.publisher.Publish(ctx, events.StreamBot, events.Event{
		Type: events.EventProofDecided,
		Payload: map[string]any{
			"proof_id":     proof.ID.String(),
			"challenge_id": challenge.ID.String(),
			"status":       proof.Status,
		},
	})
}

func (e *Engine) advance(ctx context.Context, proof *models.ProofSubmission, to string) error {
	if !models.IsValidProofTransition(proof.Stage, to) {
		return fmt.Errorf("invalid proof transition %s -> %s", proof.Stage, to)
	}
	proof.Stage = to
	return e.proofs.Update(ctx, proof)
}

func (e *Engine) transitionChallenge(ctx context.Context, challenge *models.Challenge, to string) error {
	if !models.IsValidChallengeTransition(challenge.Status, to) {
		return fmt.Errorf("invalid challenge transition %s -> %s", challenge.Status, to)
	}
	if err := e.challenges.UpdateStatus(ctx, challenge.ID, to); err != nil {
		return err
	}
	from := challenge.Status
	challenge.Status = to

	if e.publisher != nil {
		_ = e.publisher.Publish(ctx, events.StreamBot, events.Event{
			Type: events.EventChallengeStatusChanged,
			Payload: map[string]any{
				"challenge_id": challenge.ID.String(),
				"from":         from,
				"to":           to,
			},
		})
	}
	return nil
}
