package flow

import (
	"context"
	"errors"
	"strconv"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"go.uber.org/zap"
)

// startWithdrawal opens the payout flow. Active challenges block it:
// staked money stays locked until the challenge settles.
func (o *Orchestrator) startWithdrawal(ctx context.Context, user *models.User, res intent.Result) (string, error) {
	active, err := o.challenges.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if len(active) > 0 {
		return replyWithdrawalBlocked(len(active)), nil
	}

	balance, err := o.ledger.Balance(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if balance <= 0 {
		return replyNothingToWithdraw(), nil
	}

	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowWithdrawal,
		Stage:  models.StageCollectingAmount,
	}
	if res.Fields.HasAmount || res.Fields.AllBalance {
		return o.withdrawalAmountGiven(ctx, user, state, res.Fields.AmountPaise, res.Fields.AllBalance, balance)
	}

	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	return replyAskWithdrawAmount(balance), nil
}

func (o *Orchestrator) continueWithdrawal(ctx context.Context, user *models.User, state *models.ConversationState, res intent.Result) (string, error) {
	switch state.Stage {
	case models.StageCollectingAmount:
		if res.Intent != intent.IntentAmount {
			balance, err := o.ledger.Balance(ctx, user.ID)
			if err != nil {
				return "", err
			}
			return replyAskWithdrawAmount(balance), nil
		}
		balance, err := o.ledger.Balance(ctx, user.ID)
		if err != nil {
			return "", err
		}
		return o.withdrawalAmountGiven(ctx, user, state, res.Fields.AmountPaise, res.Fields.AllBalance, balance)

	case models.StageCollectingUPI:
		if res.Intent != intent.IntentFreeText || res.Fields.Text == "" {
			return replyAskUPI(), nil
		}
		state.Set(models.FieldPayoutUPI, res.Fields.Text)
		state.Stage = models.StageConfirming
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		amount, err := strconv.ParseInt(state.Get(models.FieldAmount), 10, 64)
		if err != nil {
			return "", err
		}
		return replyConfirmWithdrawal(amount, res.Fields.Text), nil

	case models.StageConfirming:
		switch res.Intent {
		case intent.IntentAffirm:
			return o.executeWithdrawal(ctx, user, state)
		case intent.IntentDeny:
			o.clearState(ctx, user.ID)
			return replyWithdrawalCancelled(), nil
		default:
			return replyYesOrNo(), nil
		}
	}

	o.clearState(ctx, user.ID)
	return replyUnknown(), nil
}

func (o *Orchestrator) withdrawalAmountGiven(ctx context.Context, user *models.User, state *models.ConversationState, amountPaise int64, allBalance bool, balance int64) (string, error) {
	if allBalance {
		amountPaise = balance
	}
	if amountPaise <= 0 || amountPaise > balance {
		state.Stage = models.StageCollectingAmount
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyAskWithdrawAmount(balance), nil
	}
	state.Set(models.FieldAmount, strconv.FormatInt(amountPaise, 10))
	state.Stage = models.StageCollectingUPI
	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	return replyAskUPI(), nil
}

func (o *Orchestrator) executeWithdrawal(ctx context.Context, user *models.User, state *models.ConversationState) (string, error) {
	amount, err := strconv.ParseInt(state.Get(models.FieldAmount), 10, 64)
	if err != nil {
		return "", err
	}
	payoutUPI := state.Get(models.FieldPayoutUPI)

	_, err = o.ledger.Debit(ctx, user.ID, amount, models.TransactionDeduction, "withdrawal payout", nil)
	if errors.Is(err, errs.ErrInsufficientBalance) {
		balance, berr := o.ledger.Balance(ctx, user.ID)
		if berr != nil {
			return "", berr
		}
		state.Stage = models.StageCollectingAmount
		if serr := o.saveState(ctx, state); serr != nil {
			return "", serr
		}
		return replyAskWithdrawAmount(balance), nil
	}
	if err != nil {
		return "", err
	}

	w, err := o.withdrawals.Create(ctx, user.ID, amount, payoutUPI)
	if err != nil {
		if _, rerr := o.ledger.Credit(ctx, user.ID, amount, models.TransactionRefund, "withdrawal refund after creation failure", nil); rerr != nil {
			o.log.Error("withdrawal refund failed", zap.String("user_id", user.ID.String()), zap.Error(rerr))
		}
		return "", err
	}

	o.clearState(ctx, user.ID)
	o.log.Info("withdrawal requested",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Int64("amount_paise", amount))
	return replyWithdrawalQueued(amount), nil
}
