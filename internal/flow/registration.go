package flow

import (
	"context"

	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleRegistration owns every message from an unregistered address.
// The User row is only created at the confirmation step.
func (o *Orchestrator) handleRegistration(ctx context.Context, msg transport.Message, sid uuid.UUID, state *models.ConversationState) (string, error) {
	if msg.HasMedia() {
		return replyRegisterFirst(), nil
	}

	if !state.Active() {
		state = &models.ConversationState{
			UserID: sid,
			Flow:   models.FlowRegistration,
			Stage:  models.StageCollectingEmail,
		}
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyWelcomeNewUser(), nil
	}

	res := o.classifier.Classify(ctx, msg.Content, state)
	if res.Intent == intent.IntentCancel {
		o.clearState(ctx, sid)
		return replyRegistrationCancelled(), nil
	}

	switch state.Stage {
	case models.StageCollectingEmail:
		if res.Intent != intent.IntentEmail {
			return replyAskEmailAgain(), nil
		}
		existing, err := o.users.GetByEmail(ctx, res.Fields.Email)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return replyEmailTaken(), nil
		}
		state.Set(models.FieldEmail, res.Fields.Email)
		state.Stage = models.StageCollectingName
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyAskName(), nil

	case models.StageCollectingName:
		if res.Intent != intent.IntentFreeText || res.Fields.Text == "" {
			return replyAskName(), nil
		}
		state.Set(models.FieldName, res.Fields.Text)
		state.Stage = models.StageConfirming
		if err := o.saveState(ctx, state); err != nil {
			return "", err
		}
		return replyConfirmRegistration(res.Fields.Text, state.Get(models.FieldEmail)), nil

	case models.StageConfirming:
		switch res.Intent {
		case intent.IntentAffirm:
			email := state.Get(models.FieldEmail)
			name := state.Get(models.FieldName)
			user, err := o.users.Create(ctx, msg.SenderAddress, &email, &name)
			if err != nil {
				return "", err
			}
			o.clearState(ctx, sid)
			o.log.Info("user registered",
				zap.String("user_id", user.ID.String()),
				zap.String("phone", user.PhoneNumber))
			return replyRegistrationDone(name), nil
		case intent.IntentDeny:
			o.clearState(ctx, sid)
			return replyRegistrationCancelled(), nil
		default:
			return replyYesOrNo(), nil
		}
	}

	// Unknown stage behaves like an evicted state.
	o.clearState(ctx, sid)
	return replyWelcomeNewUser(), nil
}
