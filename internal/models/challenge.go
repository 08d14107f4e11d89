package models

import (
	"time"

	"github.com/google/uuid"
)

// Challenge statuses
const (
	ChallengeStatusActive    = "active"
	ChallengeStatusCompleted = "completed"
	ChallengeStatusFailed    = "failed"
	ChallengeStatusCancelled = "cancelled"
)

// Valid challenge transitions: from -> []to.
// A challenge only ever exists in active state with its stake already
// deducted; every exit from active is terminal.
var ValidChallengeTransitions = map[string][]string{
	ChallengeStatusActive:    {ChallengeStatusCompleted, ChallengeStatusFailed, ChallengeStatusCancelled},
	ChallengeStatusCompleted: {},
	ChallengeStatusFailed:    {},
	ChallengeStatusCancelled: {},
}

func IsValidChallengeTransition(from, to string) bool {
	allowed, ok := ValidChallengeTransitions[from]
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

// Recurrence frequencies
const (
	FrequencyDaily        = "daily"
	FrequencyWeekly       = "weekly"
	FrequencyTwiceWeekly  = "twice_weekly"
	FrequencyThriceWeekly = "thrice_weekly"
)

func IsValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyTwiceWeekly, FrequencyThriceWeekly:
		return true
	}
	return false
}

type Recurrence struct {
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"` // e.g. "1month"
}

type Challenge struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	Goal       string      `json:"goal"`
	StakePaise int64       `json:"stake_paise"`
	Deadline   time.Time   `json:"deadline"`
	Status     string      `json:"status"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
