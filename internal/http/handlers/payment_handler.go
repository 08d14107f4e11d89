package handlers

import (
	"github.com/bettask/backend/internal/events"
	"github.com/bettask/backend/internal/ledger"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/reconcile"
	"github.com/bettask/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentHandler lets operators settle payment requests the automatic
// path could not: manual evidence entry for requests parked in manual
// review, and inspection of a request's audit trail.
type PaymentHandler struct {
	payments  *repositories.PaymentRepo
	ledger    *ledger.Service
	audit     *repositories.AuditRepo
	publisher events.Publisher
	policy    reconcile.Policy
	log       *zap.Logger
}

func NewPaymentHandler(payments *repositories.PaymentRepo, ledgerSvc *ledger.Service, audit *repositories.AuditRepo, publisher events.Publisher, policy reconcile.Policy, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, ledger: ledgerSvc, audit: audit, publisher: publisher, policy: policy, log: log}
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}
	req, err := h.payments.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if req == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment request not found"})
	}
	return c.JSON(req)
}

type manualEvidenceRequest struct {
	ObservedPaise     int64 `json:"observed_paise"`
	Fresh             bool  `json:"fresh"`
	RecipientMismatch bool  `json:"recipient_mismatch"`
	TxFailed          bool  `json:"tx_failed"`
}

// SubmitEvidence runs the same settlement policy as the automatic path,
// with operator-entered figures instead of screenshot analysis.
func (h *PaymentHandler) SubmitEvidence(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payment id"})
	}

	var body manualEvidenceRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	req, err := h.payments.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if req == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "payment request not found"})
	}
	if req.Status != models.PaymentStatusPending && req.Status != models.PaymentStatusManualReview {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "payment request already settled"})
	}

	outcome := reconcile.Reconcile(h.policy, reconcile.Input{
		ExpectedPaise:     req.ExpectedPaise,
		ObservedPaise:     body.ObservedPaise,
		Fresh:             body.Fresh,
		RecipientMismatch: body.RecipientMismatch,
		TxFailed:          body.TxFailed,
	})

	var status string
	switch outcome.Decision {
	case reconcile.DecisionCreditFull, reconcile.DecisionCreditPartial:
		status = models.PaymentStatusApproved
	case reconcile.DecisionManualReview:
		status = models.PaymentStatusManualReview
	default:
		status = models.PaymentStatusRejected
	}

	if !models.IsValidPaymentTransition(req.Status, status) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invalid status transition"})
	}
	if err := h.payments.Decide(c.Context(), req.ID, status, &body.ObservedPaise); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}

	if status == models.PaymentStatusApproved {
		if _, err := h.ledger.Credit(c.Context(), req.UserID, outcome.CreditPaise, models.TransactionCredit, "wallet top-up (manual settlement)", nil); err != nil {
			h.log.Error("manual settlement credit failed",
				zap.String("payment_id", req.ID.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "credit failed"})
		}
	}

	_ = h.audit.Log(c.Context(), nil, "operator", "payment.manual_settlement", "payment_request", &req.ID, map[string]any{
		"decision":       outcome.Decision,
		"observed_paise": body.ObservedPaise,
		"credit_paise":   outcome.CreditPaise,
	})
	if h.publisher != nil {
		_ = h.publisher.Publish(c.Context(), events.StreamBot, events.Event{
			Type: events.EventPaymentDecided,
			Payload: map[string]any{
				"payment_id": req.ID.String(),
				"status":     status,
				"decision":   outcome.Decision,
			},
		})
	}

	h.log.Info("payment manually settled",
		zap.String("payment_id", req.ID.String()),
		zap.String("decision", outcome.Decision))
	return c.JSON(fiber.Map{"decision": outcome.Decision, "credit_paise": outcome.CreditPaise, "status": status})
}
