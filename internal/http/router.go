package http

import (
	"time"

	"github.com/bettask/backend/internal/config"
	"github.com/bettask/backend/internal/http/handlers"
	"github.com/bettask/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	webhookHandler *handlers.WebhookHandler,
	paymentHandler *handlers.PaymentHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	opsHandler *handlers.OpsHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Everything else is service-to-service: the bridge posting inbound
	// messages and operator tools.
	internal := app.Group("/internal",
		middleware.RateLimitMiddleware(rdb, 300, time.Minute),
		middleware.ServiceAuthMiddleware(cfg, log),
	)

	internal.Post("/messages", webhookHandler.Inbound)

	internal.Get("/payments/:id", paymentHandler.Get)
	internal.Post("/payments/:id/evidence", paymentHandler.SubmitEvidence)

	internal.Get("/withdrawals/pending", withdrawalHandler.ListPending)
	internal.Post("/withdrawals/:id/decide", withdrawalHandler.Decide)

	internal.Post("/reminders/run", opsHandler.RunReminders)
	internal.Get("/wallets/:user_id", opsHandler.GetWallet)
	internal.Get("/audit/:entity_type/:entity_id", opsHandler.GetAuditTrail)
}
