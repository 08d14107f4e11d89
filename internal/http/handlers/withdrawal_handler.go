package handlers

import (
	"github.com/bettask/backend/internal/ledger"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithdrawalHandler is the operator side of payouts. The bot only queues
// a withdrawal; an operator pays out over UPI and records the result
// here. A rejection refunds the held amount.
type WithdrawalHandler struct {
	withdrawals *repositories.WithdrawalRepo
	ledger      *ledger.Service
	audit       *repositories.AuditRepo
	log         *zap.Logger
}

func NewWithdrawalHandler(withdrawals *repositories.WithdrawalRepo, ledgerSvc *ledger.Service, audit *repositories.AuditRepo, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, ledger: ledgerSvc, audit: audit, log: log}
}

func (h *WithdrawalHandler) ListPending(c *fiber.Ctx) error {
	list, err := h.withdrawals.ListPending(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{"withdrawals": list})
}

type withdrawalDecision struct {
	Status string `json:"status"` // paid or rejected
}

func (h *WithdrawalHandler) Decide(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid withdrawal id"})
	}

	var body withdrawalDecision
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if body.Status != models.WithdrawalStatusPaid && body.Status != models.WithdrawalStatusRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be paid or rejected"})
	}

	req, err := h.withdrawals.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if req == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "withdrawal not found"})
	}
	if req.Status != models.WithdrawalStatusPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "withdrawal already decided"})
	}

	if err := h.withdrawals.UpdateStatus(c.Context(), req.ID, body.Status); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}

	// The amount was debited when the request was queued, so a payout
	// needs no ledger entry. A rejection puts the money back.
	if body.Status == models.WithdrawalStatusRejected {
		if _, err := h.ledger.Credit(c.Context(), req.UserID, req.AmountPaise, models.TransactionRefund, "withdrawal rejected, amount returned", nil); err != nil {
			h.log.Error("withdrawal refund failed",
				zap.String("withdrawal_id", req.ID.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "refund failed"})
		}
	}

	_ = h.audit.Log(c.Context(), nil, "operator", "withdrawal."+body.Status, "withdrawal_request", &req.ID, map[string]any{
		"amount_paise": req.AmountPaise,
		"payout_upi":   req.PayoutUPI,
	})

	h.log.Info("withdrawal decided",
		zap.String("withdrawal_id", req.ID.String()),
		zap.String("status", body.Status))
	return c.JSON(fiber.Map{"status": body.Status})
}
