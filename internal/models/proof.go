package models

import (
	"time"

	"github.com/google/uuid"
)

// Proof submission verification statuses
const (
	ProofStatusPending = "pending"
	ProofStatusPassed  = "passed"
	ProofStatusFailed  = "failed"
)

// Proof submission stages
const (
	ProofStageAwaitingMedia  = "awaiting_media"
	ProofStageTimestampCheck = "timestamp_check"
	ProofStageContentCheck   = "content_check"
	ProofStagePassed         = "passed"
	ProofStageFailed         = "failed"
)

// Valid proof stage transitions: from -> []to.
// The content check is only reachable through a timestamp-check pass;
// a failed timestamp check loops on the same stage until attempts run out.
var ValidProofTransitions = map[string][]string{
	ProofStageAwaitingMedia:  {ProofStageTimestampCheck},
	ProofStageTimestampCheck: {ProofStageTimestampCheck, ProofStageContentCheck, ProofStageFailed},
	ProofStageContentCheck:   {ProofStageContentCheck, ProofStagePassed, ProofStageFailed},
	ProofStagePassed:         {},
	ProofStageFailed:         {},
}

func IsValidProofTransition(from, to string) bool {
	allowed, ok := ValidProofTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ProofSubmission tracks verification attempts for one challenge's
// completion evidence. Attempt counters are monotonic and never reset;
// a new challenge gets a new submission.
type ProofSubmission struct {
	ID               uuid.UUID `json:"id"`
	ChallengeID      uuid.UUID `json:"challenge_id"`
	Stage            string    `json:"stage"`
	Status           string    `json:"verification_status"`
	MetadataAttempts int       `json:"metadata_attempts"`
	AIAttempts       int       `json:"ai_attempts"`
	MediaRef         *string   `json:"media_ref,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
