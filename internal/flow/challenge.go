package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"go.uber.org/zap"
)

func (o *Orchestrator) startChallenge(ctx context.Context, user *models.User, res intent.Result) (string, error) {
	if o.policy.MaxActivePerUser > 0 {
		active, err := o.challenges.CountActiveByUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if active >= o.policy.MaxActivePerUser {
			return replyTooManyChallenges(o.policy.MaxActivePerUser), nil
		}
	}

	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowChallenge,
		Stage:  models.StageCollectingGoal,
	}

	if res.Fields.Goal != "" {
		state.Set(models.FieldGoal, res.Fields.Goal)
		state.Stage = models.StageCollectingAmount
		if res.Fields.HasAmount {
			state.Set(models.FieldAmount, strconv.FormatInt(res.Fields.AmountPaise, 10))
			state.Stage = models.StageConfirming
		}
	}

	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	switch state.Stage {
	case models.StageCollectingGoal:
		return replyAskGoal(), nil
	case models.StageCollectingAmount:
		return replyAskStake(), nil
	default:
		return o.challengeSummary(ctx, user, state)
	}
}

func (o *Orchestrator) continueChallenge(ctx context.Context, user *models.User, state *models.ConversationState, res intent.Result) (string, error) {
	switch state.Stage {
	case models.StageCollectingGoal:
		if res.Intent != intent.IntentFreeText || res.Fields.Text == "" {
			return replyAskGoal(), nil
		}
		state.Set(models.FieldGoal, res.Fields.Text)
		state.Stage = models.StageCollectingAmount
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyAskStake(), nil

	case models.StageCollectingAmount:
		if res.Intent != intent.IntentAmount {
			return replyAskStakeAgain(), nil
		}
		if res.Fields.AllBalance {
			state.Set(models.FieldAllIn, "true")
		} else {
			state.Set(models.FieldAmount, strconv.FormatInt(res.Fields.AmountPaise, 10))
		}
		state.Stage = models.StageConfirming
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return o.challengeSummary(ctx, user, state)

	// Only reachable when the user asked for recurrence at the
	// confirmation step without naming a frequency.
	case models.StageCollectingFrequency:
		if res.Intent != intent.IntentFreeText || !res.Fields.HasFrequency {
			return replyAskFrequency(), nil
		}
		state.Set(models.FieldFrequency, res.Fields.Frequency)
		state.Stage = models.StageConfirming
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return o.challengeSummary(ctx, user, state)

	case models.StageConfirming:
		switch res.Intent {
		case intent.IntentAffirm:
			return o.createChallenge(ctx, user, state)
		case intent.IntentDeny:
			o.clearState(ctx, user.ID)
			return replyChallengeCancelled(), nil
		case intent.IntentFreeText:
			if res.Fields.HasFrequency && res.Fields.Frequency != "" {
				state.Set(models.FieldFrequency, res.Fields.Frequency)
				if err := o.saveState(ctx, state); err != nil {
					return "", err
				}
				return o.challengeSummary(ctx, user, state)
			}
			if res.Fields.WantsRecurrence {
				state.Stage = models.StageCollectingFrequency
				if err := o.saveState(ctx, state); err != nil {
					return "", err
				}
				return replyAskFrequency(), nil
			}
			return replyYesOrNo(), nil
		default:
			return replyYesOrNo(), nil
		}
	}

	o.clearState(ctx, user.ID)
	return replyUnknown(), nil
}

func (o *Orchestrator) challengeSummary(ctx context.Context, user *models.User, state *models.ConversationState) (string, error) {
	stakeText := "your entire balance"
	if state.Get(models.FieldAllIn) != "true" {
		paise, err := strconv.ParseInt(state.Get(models.FieldAmount), 10, 64)
		if err != nil {
			return "", err
		}
		stakeText = models.FormatINR(paise)
	}
	return replyConfirmChallenge(state.Get(models.FieldGoal), stakeText, state.Get(models.FieldFrequency)), nil
}

// createChallenge is the single point where a stake leaves the wallet.
// An all-in stake resolves against the live balance here, not when the
// user typed "all", so an intervening credit or debit is honored.
func (o *Orchestrator) createChallenge(ctx context.Context, user *models.User, state *models.ConversationState) (string, error) {
	goal := state.Get(models.FieldGoal)

	var stake int64
	if state.Get(models.FieldAllIn) == "true" {
		balance, err := o.ledger.Balance(ctx, user.ID)
		if err != nil {
			return "", err
		}
		stake = balance
	} else {
		var err error
		stake, err = strconv.ParseInt(state.Get(models.FieldAmount), 10, 64)
		if err != nil {
			return "", err
		}
	}

	if stake <= 0 {
		state.Stage = models.StageCollectingAmount
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyInsufficientBalance(0), nil
	}

	_, err := o.ledger.Debit(ctx, user.ID, stake, models.TransactionDeduction, fmt.Sprintf("stake for %q", goal), nil)
	if errors.Is(err, errs.ErrInsufficientBalance) {
		balance, berr := o.ledger.Balance(ctx, user.ID)
		if berr != nil {
			return "", berr
		}
		state.Stage = models.StageCollectingAmount
		state.Set(models.FieldAllIn, "")
		if serr := o.saveState(ctx, state); serr != nil {
			return "", serr
		}
		return replyInsufficientBalance(balance), nil
	}
	if err != nil {
		return "", err
	}

	var rec *models.Recurrence
	if freq := state.Get(models.FieldFrequency); models.IsValidFrequency(freq) {
		rec = &models.Recurrence{Frequency: freq}
	}

	deadline := endOfDay(time.Now())
	challenge, err := o.challenges.Create(ctx, user.ID, goal, stake, deadline, rec)
	if err != nil {
		// The stake is already gone; put it back rather than strand it.
		if _, rerr := o.ledger.Credit(ctx, user.ID, stake, models.TransactionRefund, "stake refund after creation failure", nil); rerr != nil {
			o.log.Error("stake refund failed", zap.String("user_id", user.ID.String()), zap.Error(rerr))
		}
		return "", err
	}

	if err := o.reminders.Create(ctx, challenge.ID, user.ID, deadline.Add(-o.policy.ReminderLeadTime)); err != nil {
		o.log.Warn("reminder creation failed", zap.String("challenge_id", challenge.ID.String()), zap.Error(err))
	}

	o.clearState(ctx, user.ID)
	o.log.Info("challenge created",
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Int64("stake_paise", stake))
	return replyChallengeCreated(challenge), nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
