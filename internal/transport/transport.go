// Package transport defines the channel-agnostic message surface and the
// WhatsApp bridge client behind it.
package transport

import (
	"context"
	"time"
)

// Message is an inbound message normalized by the bridge webhook.
type Message struct {
	MessageID     string    `json:"message_id"`
	ChannelID     string    `json:"channel_id"`
	SenderAddress string    `json:"sender_address"`
	Content       string    `json:"content"`
	MediaRef      string    `json:"media_ref,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (m *Message) HasMedia() bool {
	return m.MediaRef != ""
}

// Sender delivers outbound replies.
type Sender interface {
	Send(ctx context.Context, recipientAddress, text string) error
}
