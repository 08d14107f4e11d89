package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bettask/backend/internal/ai"
	"github.com/bettask/backend/internal/config"
	"github.com/bettask/backend/internal/convstate"
	"github.com/bettask/backend/internal/db"
	"github.com/bettask/backend/internal/events"
	"github.com/bettask/backend/internal/flow"
	"github.com/bettask/backend/internal/gate"
	apphttp "github.com/bettask/backend/internal/http"
	"github.com/bettask/backend/internal/http/handlers"
	"github.com/bettask/backend/internal/intent"
	"github.com/bettask/backend/internal/ledger"
	"github.com/bettask/backend/internal/reconcile"
	"github.com/bettask/backend/internal/reminder"
	"github.com/bettask/backend/internal/repositories"
	"github.com/bettask/backend/internal/transport"
	"github.com/bettask/backend/internal/verify"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	challengeRepo := repositories.NewChallengeRepo(pool)
	proofRepo := repositories.NewProofRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	withdrawalRepo := repositories.NewWithdrawalRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	reminderRepo := repositories.NewReminderRepo(pool)

	// Collaborators
	publisher := events.NewRedisPublisher(rdb, log)
	bridge := transport.NewBridgeClient(cfg.BridgeBaseURL, log)
	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout, log)
	ledgerSvc := ledger.NewService(pool, auditRepo, log)

	// Core engine
	msgGate := gate.New(gate.NewRedisStore(rdb), cfg.GateSeenTTL, log)
	states := convstate.NewRedisStore(rdb, cfg.ConversationTTL)
	classifier := intent.NewClassifier(aiClient, cfg.AIMinConfidence, log)
	verifier := verify.NewEngine(proofRepo, challengeRepo, ledgerSvc, analyzerAdapter{aiClient},
		publisher, cfg.MetadataMaxAttempts, cfg.AIMaxAttempts, cfg.RewardMultiplier, log)
	orchestrator := flow.NewOrchestrator(
		msgGate, states, userRepo, challengeRepo, paymentRepo, withdrawalRepo,
		ledgerSvc, reminderRepo, classifier, verifier, aiClient, bridge, bridge,
		flow.Policy{
			MinDepositPaise:  cfg.MinDepositPaise,
			MaxDepositPaise:  cfg.MaxDepositPaise,
			PayeeUPIHandle:   cfg.PayeeUPIHandle,
			TolerancePct:     cfg.AmountTolerancePct,
			PartialFloorPct:  cfg.PartialFloorPct,
			ReminderLeadTime: cfg.ReminderLeadTime,
			MaxActivePerUser: cfg.MaxActiveChallenges,
		},
		log,
	)
	reminderSvc := reminder.NewService(reminderRepo, userRepo, challengeRepo, bridge, publisher, cfg.RewardMultiplier, log)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(orchestrator, log)
	paymentHandler := handlers.NewPaymentHandler(paymentRepo, ledgerSvc, auditRepo, publisher,
		reconcile.Policy{TolerancePct: cfg.AmountTolerancePct, PartialFloorPct: cfg.PartialFloorPct}, log)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalRepo, ledgerSvc, auditRepo, log)
	opsHandler := handlers.NewOpsHandler(reminderSvc, ledgerSvc, auditRepo, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, webhookHandler, paymentHandler, withdrawalHandler, opsHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting bot server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// analyzerAdapter narrows the AI client to the verification engine's
// verdict type.
type analyzerAdapter struct {
	client *ai.Client
}

func (a analyzerAdapter) CheckFreshness(ctx context.Context, mediaRef string, now time.Time) (verify.Verdict, error) {
	v, err := a.client.CheckFreshness(ctx, mediaRef, now)
	if err != nil {
		return verify.Verdict{}, err
	}
	return verify.Verdict{Valid: v.Valid, Confidence: v.Confidence, Explanation: v.Explanation}, nil
}

func (a analyzerAdapter) MatchContent(ctx context.Context, mediaRef, goal string) (verify.Verdict, error) {
	v, err := a.client.MatchContent(ctx, mediaRef, goal)
	if err != nil {
		return verify.Verdict{}, err
	}
	return verify.Verdict{Valid: v.Valid, Confidence: v.Confidence, Explanation: v.Explanation}, nil
}
