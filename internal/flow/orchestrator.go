// Package flow routes classified intents through per-user conversation
// flows. All side effects funnel through the injected collaborators;
// processing for one user is serialized so two messages can never race
// on the same flow stage or wallet.
package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bettask/backend/internal/ai"
	"github.com/bettask/backend/internal/errs"
	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/transport"
	"github.com/bettask/backend/internal/verify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Gate interface {
	Accept(ctx context.Context, channel, messageID string, ts time.Time) error
	Commit(ctx context.Context, channel string, ts time.Time) error
}

type StateStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.ConversationState, error)
	Save(ctx context.Context, state *models.ConversationState) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type Users interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, phoneNumber string, email, displayName *string) (*models.User, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID) error
}

type Challenges interface {
	Create(ctx context.Context, userID uuid.UUID, goal string, stakePaise int64, deadline time.Time, rec *models.Recurrence) (*models.Challenge, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Challenge, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type Payments interface {
	Create(ctx context.Context, userID uuid.UUID, expectedPaise int64, payeeHandle string) (*models.PaymentRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	GetPendingByUser(ctx context.Context, userID uuid.UUID) (*models.PaymentRequest, error)
	Decide(ctx context.Context, id uuid.UUID, status string, observedPaise *int64) error
}

type Withdrawals interface {
	Create(ctx context.Context, userID uuid.UUID, amountPaise int64, payoutUPI string) (*models.WithdrawalRequest, error)
}

type Ledger interface {
	Debit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error)
	Credit(ctx context.Context, userID uuid.UUID, amountPaise int64, kind, description string, challengeID *uuid.UUID) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Reminders interface {
	Create(ctx context.Context, challengeID, userID uuid.UUID, dueAt time.Time) error
	CancelForChallenge(ctx context.Context, challengeID uuid.UUID) error
}

type Classifier interface {
	Classify(ctx context.Context, text string, state *models.ConversationState) intent.Result
}

type Verifier interface {
	Submit(ctx context.Context, challenge *models.Challenge, mediaRef string) (*verify.Outcome, error)
}

type EvidenceReader interface {
	ReadPaymentEvidence(ctx context.Context, mediaRef, payee string, now time.Time) (*ai.PaymentEvidence, error)
}

type MediaResolver interface {
	ResolveMedia(ctx context.Context, mediaRef string) (string, error)
}

// Policy carries the flow-level business constants.
type Policy struct {
	MinDepositPaise  int64
	MaxDepositPaise  int64
	PayeeUPIHandle   string
	TolerancePct     int64
	PartialFloorPct  int64
	ReminderLeadTime time.Duration
	MaxActivePerUser int
}

type Orchestrator struct {
	gate        Gate
	states      StateStore
	users       Users
	challenges  Challenges
	payments    Payments
	withdrawals Withdrawals
	ledger      Ledger
	reminders   Reminders
	classifier  Classifier
	verifier    Verifier
	evidence    EvidenceReader
	media       MediaResolver
	sender      transport.Sender
	policy      Policy
	log         *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewOrchestrator(
	gate Gate,
	states StateStore,
	users Users,
	challenges Challenges,
	payments Payments,
	withdrawals Withdrawals,
	ledger Ledger,
	reminders Reminders,
	classifier Classifier,
	verifier Verifier,
	evidence EvidenceReader,
	media MediaResolver,
	sender transport.Sender,
	policy Policy,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		gate:        gate,
		states:      states,
		users:       users,
		challenges:  challenges,
		payments:    payments,
		withdrawals: withdrawals,
		ledger:      ledger,
		reminders:   reminders,
		classifier:  classifier,
		verifier:    verifier,
		evidence:    evidence,
		media:       media,
		sender:      sender,
		policy:      policy,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
	}
}

// userLock serializes processing per sender address. The map only grows;
// one mutex per user the deployment has ever seen is cheap at this scale.
func (o *Orchestrator) userLock(address string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[address]
	if !ok {
		l = &sync.Mutex{}
		o.locks[address] = l
	}
	return l
}

// sessionID keys conversation state. Registered users use their row ID;
// before registration the phone number hashes to a stable session ID so
// the registration flow survives across messages.
func sessionID(user *models.User, address string) uuid.UUID {
	if user != nil {
		return user.ID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(address))
}

// HandleMessage is the single entry point for inbound traffic.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg transport.Message) error {
	if err := o.gate.Accept(ctx, msg.ChannelID, msg.MessageID, msg.Timestamp); err != nil {
		if errors.Is(err, errs.ErrDuplicateMessage) {
			o.log.Debug("duplicate message dropped", zap.String("message_id", msg.MessageID))
			return nil
		}
		return err
	}

	lock := o.userLock(msg.SenderAddress)
	lock.Lock()
	defer lock.Unlock()

	reply, err := o.process(ctx, msg)
	if err != nil {
		// The message is already in the seen-set, so the bridge's
		// redelivery would be dropped; the user hears something rather
		// than silence.
		if serr := o.sender.Send(ctx, msg.SenderAddress, replyTryAgainLater()); serr != nil {
			o.log.Error("failure reply send failed", zap.String("recipient", msg.SenderAddress), zap.Error(serr))
		}
		return err
	}
	if reply != "" {
		if err := o.sender.Send(ctx, msg.SenderAddress, reply); err != nil {
			o.log.Error("reply send failed", zap.String("recipient", msg.SenderAddress), zap.Error(err))
		}
	}

	// The watermark only moves after the state write has committed.
	if err := o.gate.Commit(ctx, msg.ChannelID, msg.Timestamp); err != nil {
		o.log.Warn("watermark commit failed", zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, msg transport.Message) (string, error) {
	user, err := o.users.GetByPhone(ctx, msg.SenderAddress)
	if err != nil {
		return "", err
	}

	sid := sessionID(user, msg.SenderAddress)
	state, err := o.states.Get(ctx, sid)
	if err != nil {
		return "", err
	}

	if user == nil {
		return o.handleRegistration(ctx, msg, sid, state)
	}
	_ = o.users.UpdateLastActive(ctx, user.ID)

	if msg.HasMedia() {
		return o.handleMedia(ctx, user, state, msg)
	}

	res := o.classifier.Classify(ctx, msg.Content, state)

	// Escapes clear any active flow before the intent is routed.
	if intent.IsEscape(res.Intent) && state.Active() {
		if err := o.states.Clear(ctx, user.ID); err != nil {
			return "", err
		}
		state = nil
		if res.Intent == intent.IntentCancel {
			return replyFlowCancelled(), nil
		}
	}

	if state.Active() {
		return o.continueFlow(ctx, user, state, res, msg)
	}
	return o.startIntent(ctx, user, res, msg)
}

// startIntent routes an intent with no flow in progress.
func (o *Orchestrator) startIntent(ctx context.Context, user *models.User, res intent.Result, msg transport.Message) (string, error) {
	switch res.Intent {
	case intent.IntentGreeting:
		return replyGreeting(user), nil
	case intent.IntentHelp:
		return replyHelp(), nil
	case intent.IntentCancel:
		return replyNothingToCancel(), nil
	case intent.IntentBalance:
		balance, err := o.ledger.Balance(ctx, user.ID)
		if err != nil {
			return "", err
		}
		return replyBalance(balance), nil
	case intent.IntentListChallenges:
		list, err := o.challenges.ListActiveByUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		return replyChallengeList(list), nil
	case intent.IntentCreateChallenge:
		return o.startChallenge(ctx, user, res)
	case intent.IntentCompletionClaim:
		return o.startCompletion(ctx, user)
	case intent.IntentFundRequest:
		return o.startFunding(ctx, user, res)
	case intent.IntentWithdrawRequest:
		return o.startWithdrawal(ctx, user, res)
	default:
		return replyUnknown(), nil
	}
}

// continueFlow dispatches a mid-flow message to the flow's stage handler.
// Unparseable input re-prompts the same stage; the idle TTL is the only
// bound on retries.
func (o *Orchestrator) continueFlow(ctx context.Context, user *models.User, state *models.ConversationState, res intent.Result, msg transport.Message) (string, error) {
	switch state.Flow {
	case models.FlowChallenge:
		return o.continueChallenge(ctx, user, state, res)
	case models.FlowCompletion:
		return o.continueCompletion(ctx, user, state, res)
	case models.FlowFunding:
		return o.continueFunding(ctx, user, state, res)
	case models.FlowWithdrawal:
		return o.continueWithdrawal(ctx, user, state, res)
	default:
		// Unknown flow state is treated as evicted.
		if err := o.states.Clear(ctx, user.ID); err != nil {
			return "", err
		}
		return o.startIntent(ctx, user, res, msg)
	}
}

// handleMedia routes an image to whichever flow is waiting on one.
func (o *Orchestrator) handleMedia(ctx context.Context, user *models.User, state *models.ConversationState, msg transport.Message) (string, error) {
	switch {
	case state.Active() && state.Flow == models.FlowCompletion && state.Stage == models.StageAwaitingProof:
		return o.handleProofMedia(ctx, user, state, msg)
	case state.Active() && state.Flow == models.FlowFunding && state.Stage == models.StageAwaitingEvidence:
		return o.handlePaymentEvidence(ctx, user, state, msg)
	default:
		return replyUnexpectedMedia(), nil
	}
}

func (o *Orchestrator) clearState(ctx context.Context, sid uuid.UUID) {
	if err := o.states.Clear(ctx, sid); err != nil {
		o.log.Warn("state clear failed", zap.String("session", sid.String()), zap.Error(err))
	}
}

func (o *Orchestrator) saveState(ctx context.Context, state *models.ConversationState) error {
	return o.states.Save(ctx, state)
}
