package models

import (
	"time"

	"github.com/google/uuid"
)

// Flow identifies the active multi-turn conversation, or none.
type Flow string

const (
	FlowNone         Flow = ""
	FlowRegistration Flow = "registration"
	FlowChallenge    Flow = "challenge_creation"
	FlowFunding      Flow = "funding"
	FlowWithdrawal   Flow = "withdrawal"
	FlowCompletion   Flow = "completion_verification"
)

// Stage names are scoped to a flow; the orchestrator owns their meaning.
type Stage string

const (
	// challenge creation
	StageCollectingGoal      Stage = "collecting_goal"
	StageCollectingAmount    Stage = "collecting_amount"
	StageCollectingFrequency Stage = "collecting_frequency"
	StageConfirming          Stage = "confirming"

	// registration
	StageCollectingEmail Stage = "collecting_email"
	StageCollectingName  Stage = "collecting_name"

	// funding and withdrawal reuse the amount and confirm stages
	StageAwaitingEvidence Stage = "awaiting_evidence"
	StageCollectingUPI    Stage = "collecting_upi"

	// completion verification
	StageSelectingChallenge Stage = "selecting_challenge"
	StageAwaitingProof      Stage = "awaiting_proof"
)

// Field keys for partially collected flow data.
const (
	FieldGoal      = "goal"
	FieldAmount    = "amount" // paise, decimal string
	FieldAllIn     = "all_in" // "true" when stake resolves to balance at confirmation
	FieldFrequency = "frequency"
	FieldEmail     = "email"
	FieldName      = "name"
	FieldPayoutUPI = "payout_upi"
	FieldChallenge = "challenge_id"
	FieldPaymentID = "payment_id"
)

// ConversationState is the per-user record of the active flow and its
// progress. It is owned exclusively by the flow orchestrator and evicted
// after an idle TTL, which forces stale flows to restart.
type ConversationState struct {
	UserID    uuid.UUID         `json:"user_id"`
	Flow      Flow              `json:"flow"`
	Stage     Stage             `json:"stage"`
	Fields    map[string]string `json:"fields,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *ConversationState) Active() bool {
	return s != nil && s.Flow != FlowNone
}

func (s *ConversationState) Get(key string) string {
	if s == nil || s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

func (s *ConversationState) Set(key, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[key] = value
}
