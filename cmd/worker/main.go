package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bettask/backend/internal/config"
	"github.com/bettask/backend/internal/db"
	"github.com/bettask/backend/internal/events"
	"github.com/bettask/backend/internal/models"
	"github.com/bettask/backend/internal/reminder"
	"github.com/bettask/backend/internal/repositories"
	"github.com/bettask/backend/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	userRepo := repositories.NewUserRepo(pool)
	challengeRepo := repositories.NewChallengeRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	reminderRepo := repositories.NewReminderRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	bridge := transport.NewBridgeClient(cfg.BridgeBaseURL, log)
	reminderSvc := reminder.NewService(reminderRepo, userRepo, challengeRepo, bridge, publisher, cfg.RewardMultiplier, log)

	// Any process that settles a challenge publishes a status event; the
	// worker owns reminders, so it drops the pending ones here.
	var subscriber events.Subscriber = events.NewRedisSubscriber(rdb, log)
	if err := subscriber.Subscribe(ctx, events.StreamBot, func(ev events.Event) {
		if ev.Type != events.EventChallengeStatusChanged {
			return
		}
		to, _ := ev.Payload["to"].(string)
		if to == models.ChallengeStatusActive {
			return
		}
		idText, _ := ev.Payload["challenge_id"].(string)
		challengeID, err := uuid.Parse(idText)
		if err != nil {
			return
		}
		if err := reminderRepo.CancelForChallenge(ctx, challengeID); err != nil {
			log.Warn("reminder cancel failed", zap.String("challenge_id", idText), zap.Error(err))
		}
	}); err != nil {
		log.Fatal("failed to subscribe to events", zap.Error(err))
	}

	log.Info("worker started")

	// Run jobs on tickers
	reminderTicker := time.NewTicker(1 * time.Minute)
	expiryTicker := time.NewTicker(2 * time.Minute)
	paymentTicker := time.NewTicker(5 * time.Minute)
	defer reminderTicker.Stop()
	defer expiryTicker.Stop()
	defer paymentTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reminderTicker.C:
			if err := reminderSvc.ProcessDue(ctx); err != nil {
				log.Error("reminder sweep failed", zap.Error(err))
			}
		case <-expiryTicker.C:
			runChallengeExpiry(ctx, challengeRepo, reminderRepo, auditRepo, bridge, userRepo, publisher, log)
		case <-paymentTicker.C:
			runPaymentExpiry(ctx, paymentRepo, auditRepo, cfg, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		}
	}
}

// runChallengeExpiry fails every active challenge whose deadline has
// passed without a verified completion. The stake is forfeited: no
// ledger entry is written, the money simply never comes back.
func runChallengeExpiry(
	ctx context.Context,
	challenges *repositories.ChallengeRepo,
	reminders *repositories.ReminderRepo,
	audit *repositories.AuditRepo,
	sender transport.Sender,
	users *repositories.UserRepo,
	publisher events.Publisher,
	log *zap.Logger,
) {
	expired, err := challenges.ListExpired(ctx, time.Now())
	if err != nil {
		log.Error("expired challenge query failed", zap.Error(err))
		return
	}

	for _, c := range expired {
		if !models.IsValidChallengeTransition(c.Status, models.ChallengeStatusFailed) {
			continue
		}
		if err := challenges.UpdateStatus(ctx, c.ID, models.ChallengeStatusFailed); err != nil {
			log.Error("challenge expiry update failed", zap.String("challenge_id", c.ID.String()), zap.Error(err))
			continue
		}
		if err := reminders.CancelForChallenge(ctx, c.ID); err != nil {
			log.Warn("reminder cancel failed", zap.String("challenge_id", c.ID.String()), zap.Error(err))
		}
		_ = audit.Log(ctx, nil, "system", "challenge.expired", "challenge", &c.ID, map[string]any{
			"stake_paise": c.StakePaise,
			"deadline":    c.Deadline,
		})
		_ = publisher.Publish(ctx, events.StreamBot, events.Event{
			Type: events.EventChallengeStatusChanged,
			Payload: map[string]any{
				"challenge_id": c.ID.String(),
				"from":         models.ChallengeStatusActive,
				"to":           models.ChallengeStatusFailed,
			},
		})

		user, err := users.GetByID(ctx, c.UserID)
		if err != nil {
			log.Warn("expiry notification lookup failed", zap.String("challenge_id", c.ID.String()), zap.Error(err))
			continue
		}
		text := "⏰ Time's up on " + c.Goal + ". The challenge is marked failed and the " +
			models.FormatINR(c.StakePaise) + " stake is forfeited. Better luck on the next one!"
		if err := sender.Send(ctx, user.PhoneNumber, text); err != nil {
			log.Warn("expiry notification failed", zap.String("challenge_id", c.ID.String()), zap.Error(err))
		}

		log.Info("challenge expired",
			zap.String("challenge_id", c.ID.String()),
			zap.Int64("stake_paise", c.StakePaise))
	}
}

// runPaymentExpiry closes pending payment requests older than the TTL so
// a forgotten "add money" never settles weeks later.
func runPaymentExpiry(
	ctx context.Context,
	payments *repositories.PaymentRepo,
	audit *repositories.AuditRepo,
	cfg *config.Config,
	log *zap.Logger,
) {
	expired, err := payments.ListExpired(ctx, time.Now().Add(-cfg.PaymentRequestTTL))
	if err != nil {
		log.Error("expired payment query failed", zap.Error(err))
		return
	}

	for _, p := range expired {
		if !models.IsValidPaymentTransition(p.Status, models.PaymentStatusExpired) {
			continue
		}
		if err := payments.Decide(ctx, p.ID, models.PaymentStatusExpired, nil); err != nil {
			log.Error("payment expiry update failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
			continue
		}
		_ = audit.Log(ctx, nil, "system", "payment.expired", "payment_request", &p.ID, nil)
		log.Info("payment request expired", zap.String("payment_id", p.ID.String()))
	}
}
