package handlers

import (
	"context"

	"github.com/bettask/backend/internal/ledger"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReminderRunner interface {
	ProcessDue(ctx context.Context) error
}

// OpsHandler exposes operator utilities: kicking the reminder sweep
// outside its schedule, inspecting a user's wallet, and reading an
// entity's audit trail.
type OpsHandler struct {
	reminders ReminderRunner
	ledger    *ledger.Service
	audit     *repositories.AuditRepo
	log       *zap.Logger
}

func NewOpsHandler(reminders ReminderRunner, ledgerSvc *ledger.Service, audit *repositories.AuditRepo, log *zap.Logger) *OpsHandler {
	return &OpsHandler{reminders: reminders, ledger: ledgerSvc, audit: audit, log: log}
}

func (h *OpsHandler) RunReminders(c *fiber.Ctx) error {
	if err := h.reminders.ProcessDue(c.Context()); err != nil {
		h.log.Error("reminder sweep failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *OpsHandler) GetWallet(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	wallet, err := h.ledger.Wallet(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "wallet not found"})
	}
	history, err := h.ledger.History(c.Context(), userID, 20)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "history lookup failed"})
	}
	return c.JSON(fiber.Map{
		"wallet":       wallet,
		"balance":      models.FormatINR(wallet.BalancePaise),
		"transactions": history,
	})
}

func (h *OpsHandler) GetAuditTrail(c *fiber.Ctx) error {
	entityID, err := uuid.Parse(c.Params("entity_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid entity id"})
	}
	entries, err := h.audit.GetByEntity(c.Context(), c.Params("entity_type"), entityID, 50)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{"entries": entries})
}
