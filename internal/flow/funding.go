package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/reconcile"
	"github.com/bettask/backend/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (o *Orchestrator) startFunding(ctx context.Context, user *models.User, res intent.Result) (string, error) {
	if res.Fields.HasAmount {
		return o.openPaymentRequest(ctx, user, res.Fields.AmountPaise)
	}

	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowFunding,
		Stage:  models.StageCollectingAmount,
	}
	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}
	return replyAskDepositAmount(o.policy.MinDepositPaise, o.policy.MaxDepositPaise), nil
}

func (o *Orchestrator) continueFunding(ctx context.Context, user *models.User, state *models.ConversationState, res intent.Result) (string, error) {
	switch state.Stage {
	case models.StageCollectingAmount:
		if res.Intent != intent.IntentAmount || res.Fields.AllBalance {
			return replyAskDepositAmount(o.policy.MinDepositPaise, o.policy.MaxDepositPaise), nil
		}
		return o.openPaymentRequest(ctx, user, res.Fields.AmountPaise)

	case models.StageAwaitingEvidence:
		return replySendPaymentScreenshot(), nil
	}

	o.clearState(ctx, user.ID)
	return replyUnknown(), nil
}

func (o *Orchestrator) openPaymentRequest(ctx context.Context, user *models.User, amountPaise int64) (string, error) {
	if amountPaise < o.policy.MinDepositPaise || amountPaise > o.policy.MaxDepositPaise {
		state := &models.ConversationState{
			UserID: user.ID,
			Flow:   models.FlowFunding,
			Stage:  models.StageCollectingAmount,
		}
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyDepositOutOfRange(o.policy.MinDepositPaise, o.policy.MaxDepositPaise), nil
	}

	req, err := o.payments.Create(ctx, user.ID, amountPaise, o.policy.PayeeUPIHandle)
	if err != nil {
		return "", err
	}

	state := &models.ConversationState{
		UserID: user.ID,
		Flow:   models.FlowFunding,
		Stage:  models.StageAwaitingEvidence,
	}
	state.Set(models.FieldPaymentID, req.ID.String())
	if err := o.saveState(ctx, state); err != nil {
		return "", err
	}

	o.log.Info("payment request opened",
		zap.String("payment_id", req.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Int64("expected_paise", amountPaise))
	return replyPaymentInstructions(amountPaise, o.policy.PayeeUPIHandle), nil
}

// handlePaymentEvidence reads the screenshot, runs the settlement policy
// and applies its decision. An unreachable evidence reader parks the
// request in manual review instead of guessing.
func (o *Orchestrator) handlePaymentEvidence(ctx context.Context, user *models.User, state *models.ConversationState, msg transport.Message) (string, error) {
	req, err := o.pendingPayment(ctx, user, state)
	if err != nil {
		return "", err
	}
	if req == nil {
		o.clearState(ctx, user.ID)
		return replyNoPendingPayment(), nil
	}

	mediaURL, err := o.media.ResolveMedia(ctx, msg.MediaRef)
	if err != nil {
		o.log.Warn("media resolve failed", zap.String("media_ref", msg.MediaRef), zap.Error(err))
		return replyTryAgainLater(), nil
	}

	ev, err := o.evidence.ReadPaymentEvidence(ctx, mediaURL, req.PayeeHandle, time.Now())
	if errors.Is(err, errs.ErrExternalService) {
		o.log.Warn("evidence reader unavailable, routing to manual review",
			zap.String("payment_id", req.ID.String()), zap.Error(err))
		if derr := o.payments.Decide(ctx, req.ID, models.PaymentStatusManualReview, nil); derr != nil {
			return "", derr
		}
		o.clearState(ctx, user.ID)
		return replyPaymentManualReview(), nil
	}
	if err != nil {
		return "", err
	}

	outcome := reconcile.Reconcile(
		reconcile.Policy{TolerancePct: o.policy.TolerancePct, PartialFloorPct: o.policy.PartialFloorPct},
		reconcile.Input{
			ExpectedPaise:     req.ExpectedPaise,
			ObservedPaise:     ev.AmountPaise,
			Fresh:             ev.Fresh,
			RecipientMismatch: ev.Recipient != "" && !strings.EqualFold(ev.Recipient, req.PayeeHandle),
			TxFailed:          strings.EqualFold(ev.TransactionStatus, "failed"),
		},
	)

	o.log.Info("payment evidence reconciled",
		zap.String("payment_id", req.ID.String()),
		zap.String("decision", outcome.Decision),
		zap.Int64("expected_paise", req.ExpectedPaise),
		zap.Int64("observed_paise", ev.AmountPaise))

	switch outcome.Decision {
	case reconcile.DecisionCreditFull, reconcile.DecisionCreditPartial:
		if err := o.payments.Decide(ctx, req.ID, models.PaymentStatusApproved, &ev.AmountPaise); err != nil {
			return "", err
		}
		balance, err := o.ledger.Credit(ctx, user.ID, outcome.CreditPaise, models.TransactionCredit, "wallet top-up", nil)
		if err != nil {
			return "", err
		}
		o.clearState(ctx, user.ID)
		return replyPaymentCredited(outcome.CreditPaise, balance, outcome.Decision == reconcile.DecisionCreditPartial), nil

	case reconcile.DecisionManualReview:
		if err := o.payments.Decide(ctx, req.ID, models.PaymentStatusManualReview, &ev.AmountPaise); err != nil {
			return "", err
		}
		o.clearState(ctx, user.ID)
		return replyPaymentManualReview(), nil

	default:
		if err := o.payments.Decide(ctx, req.ID, models.PaymentStatusRejected, &ev.AmountPaise); err != nil {
			return "", err
		}
		o.clearState(ctx, user.ID)
		return replyPaymentRejected(), nil
	}
}

func (o *Orchestrator) pendingPayment(ctx context.Context, user *models.User, state *models.ConversationState) (*models.PaymentRequest, error) {
	if raw := state.Get(models.FieldPaymentID); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			req, err := o.payments.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if req != nil && req.Status == models.PaymentStatusPending {
				return req, nil
			}
			return nil, nil
		}
	}
	return o.payments.GetPendingByUser(ctx, user.ID)
}
