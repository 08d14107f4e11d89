package flow

import (
	"context"

	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/transport"
	"github.com/bettask/backend/internal/verify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// startCompletion resolves which challenge the completion claim targets.
// One active challenge selects itself; several with the same goal pick
// the newest; otherwise the user disambiguates by index.
func (o *Orchestrator) startCompletion(ctx context.Context, user *models.User) (string, error) {
	list, err := o.challenges.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return replyNoActiveChallenges(), nil
	}

	if target := autoSelect(list); target != nil {
		return o.awaitProof(ctx, user, target)
	}

	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowCompletion,
		Stage:  models.StageSelectingChallenge,
	}
	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	return replySelectChallenge(list), nil
}

// autoSelect returns the unambiguous target, or nil when the user must
// choose. Challenges sharing one goal resolve to the most recent.
func autoSelect(list []*models.Challenge) *models.Challenge {
	if len(list) == 1 {
		return list[0]
	}
	for _, c := range list[1:] {
		if c.Goal != list[0].Goal {
			return nil
		}
	}
	latest := list[0]
	for _, c := range list[1:] {
		if c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest
}

func (o *Orchestrator) awaitProof(ctx context.Context, user *models.User, challenge *models.Challenge) (string, error) {
	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowCompletion,
		Stage:  models.StageAwaitingProof,
	}
	state.Set(models.FieldChallenge, challenge.ID.String())
	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	return replySendProof(challenge.Goal), nil
}

func (o *Orchestrator) continueCompletion(ctx context.Context, user *models.User, state *models.ConversationState, res intent.Result) (string, error) {
	switch state.Stage {
	case models.StageSelectingChallenge:
		if !res.Fields.HasSelection {
			return replyPickByNumber(), nil
		}
		list, err := o.challenges.ListActiveByUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		idx := res.Fields.Selection - 1
		if idx < 0 || idx >= len(list) {
			return replyPickByNumber(), nil
		}
		return o.awaitProof(ctx, user, list[idx])

	case models.StageAwaitingProof:
		return replySendProof(""), nil
	}

	o.clearState(ctx, user.ID)
	return replyUnknown(), nil
}

// handleProofMedia hands the media to the verification engine and maps
// its outcome to a reply. Terminal outcomes clear the flow and cancel
// pending reminders.
func (o *Orchestrator) handleProofMedia(ctx context.Context, user *models.User, state *models.ConversationState, msg transport.Message) (string, error) {
	challengeID, err := uuid.Parse(state.Get(models.FieldChallenge))
	if err != nil {
		o.clearState(ctx, user.ID)
		return replyUnknown(), nil
	}
	challenge, err := o.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return "", err
	}
	if challenge == nil || challenge.Status != models.ChallengeStatusActive {
		o.clearState(ctx, user.ID)
		return replyNoActiveChallenges(), nil
	}

	mediaURL, err := o.media.ResolveMedia(ctx, msg.MediaRef)
	if err != nil {
		o.log.Warn("media resolve failed", zap.String("media_ref", msg.MediaRef), zap.Error(err))
		return replyTryAgainLater(), nil
	}

	outcome, err := o.verifier.Submit(ctx, challenge, mediaURL)
	if err != nil {
		return "", err
	}

	switch outcome.Result {
	case verify.ResultPassed, verify.ResultFailedForfeit:
		o.clearState(ctx, user.ID)
		if err := o.reminders.CancelForChallenge(ctx, challenge.ID); err != nil {
			o.log.Warn("reminder cancel failed", zap.String("challenge_id", challenge.ID.String()), zap.Error(err))
		}
	}
	return replyVerification(outcome, challenge), nil
}
