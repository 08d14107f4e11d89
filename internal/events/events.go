package events

import "context"

// StreamBot is the single pub/sub stream both binaries share.
const StreamBot = "bettask:events"

// Event types
const (
	EventChallengeStatusChanged = "challenge_status_changed"
	EventPaymentDecided         = "payment_decided"
	EventProofDecided           = "proof_decided"
	EventReminderDue            = "reminder_due"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
