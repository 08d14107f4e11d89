package handlers

import (
	"context"
	"time"

	"github.com/bettask/backend/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg transport.Message) error
}

// WebhookHandler receives inbound messages from the WhatsApp bridge.
type WebhookHandler struct {
	orchestrator MessageHandler
	log          *zap.Logger
}

func NewWebhookHandler(orchestrator MessageHandler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{orchestrator: orchestrator, log: log}
}

type inboundMessageRequest struct {
	MessageID     string `json:"message_id"`
	ChannelID     string `json:"channel_id"`
	SenderAddress string `json:"sender_address"`
	Content       string `json:"content"`
	MediaRef      string `json:"media_ref"`
	Timestamp     int64  `json:"timestamp"`
}

// Inbound accepts a message and processes it off the request goroutine.
// The bridge only needs to know we took delivery; replies travel back
// through its send API, not this response.
func (h *WebhookHandler) Inbound(c *fiber.Ctx) error {
	var req inboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.MessageID == "" || req.SenderAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message_id and sender_address are required"})
	}
	if req.ChannelID == "" {
		req.ChannelID = "whatsapp"
	}

	ts := time.Now()
	if req.Timestamp > 0 {
		ts = time.Unix(req.Timestamp, 0)
	}
	msg := transport.Message{
		MessageID:     req.MessageID,
		ChannelID:     req.ChannelID,
		SenderAddress: req.SenderAddress,
		Content:       req.Content,
		MediaRef:      req.MediaRef,
		Timestamp:     ts,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := h.orchestrator.HandleMessage(ctx, msg); err != nil {
			h.log.Error("message processing failed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}
