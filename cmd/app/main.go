// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"payment-events/internal/config"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
	"payment-events/internal/domain/ports/repository"
	"payment-events/internal/infra/api"
	pg "payment-events/internal/infra/db/postgres"
	"payment-events/internal/infra/logging"
	"payment-events/internal/infra/metrics"
	"payment-events/internal/infra/notify"
	"payment-events/internal/infra/payment"
	red "payment-events/internal/infra/redis"
	"payment-events/internal/infra/sched"
	"payment-events/internal/infra/worker"
	"payment-events/internal/usecase"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Repositories ----
	eventRepo := pg.NewWebhookEventRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	commissionRepo := pg.NewCommissionRepo(pool)
	pointsRepo := pg.NewPointsRepo(pool)
	anomalyRepo := pg.NewAnomalyRepo(pool)
	tm := pg.NewTxManager(pool)
	var affiliateRepo repository.AffiliateRepository = pg.NewAffiliateRepo(pool)

	// ---- Redis (optional) ----
	var (
		processed adapter.ProcessedCache
		locker    sched.Locker
		limiter   api.Limiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		prefix := cfg.Redis.KeyPrefix
		processed = red.NewProcessedCache(redisClient, prefix)
		locker = red.NewLocker(redisClient, prefix)
		limiter = red.NewRateLimiter(redisClient, prefix)
		affiliateRepo = pg.NewAffiliateRepoCacheDecorator(affiliateRepo, redisClient, prefix, 10*time.Minute)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("redis enabled")
	}

	// ---- Payment provider ----
	verifier, err := payment.NewStripeVerifier(cfg.Payment.Stripe.WebhookSecret, cfg.Payment.Stripe.Tolerance)
	if err != nil {
		logger.Fatal().Err(err).Msg("stripe verifier")
	}
	decoder := payment.NewStripeDecoder()

	// ---- Notifications ----
	renderer, err := notify.NewRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("templates")
	}
	var mailer adapter.Mailer
	switch cfg.Notify.Channel {
	case "amqp":
		pub, err := notify.NewRabbitPublisher(cfg.Notify.AMQP.URL, cfg.Notify.AMQP.Exchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("amqp")
		}
		defer pub.Close()
		mailer = notify.NewAMQPMailer(pub, cfg.Notify.AMQP.RoutingKey, cfg.Notify.From)
	case "log":
		mailer = notify.NewLogMailer(logger)
	default:
		mailer = notify.NewSMTPMailer(cfg.Notify.SMTP, cfg.Notify.From)
	}
	logger.Info().Str("channel", mailer.Name()).Msg("notification channel")

	notifyPool := worker.NewPool(cfg.Notify.Workers, cfg.Notify.QueueSize, logger)
	// the pool outlives the signal so queued mail can drain in Stop
	notifyPool.Start(context.Background())

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(eventRepo, processed, cfg.Ledger.StaleAfter, cfg.Redis.TTL, logger)
	rewardsUC := usecase.NewRewardsUseCase(affiliateRepo, commissionRepo, pointsRepo, usecase.RewardsConfig{
		DefaultRateBps:  *cfg.Rewards.DefaultRateBps,
		PointsUnitMinor: cfg.Rewards.PointsUnitMinor,
		PointsPerUnit:   cfg.Rewards.PointsPerUnit,
	}, logger)
	reconcileUC := usecase.NewReconcileUseCase(orderRepo, subRepo, anomalyRepo, rewardsUC, decoder, tm, logger)
	notifyUC := usecase.NewNotificationUseCase(renderer, mailer, notifyPool, usecase.NotifyPolicy{
		SendTimeout: cfg.Notify.SendTimeout,
		MaxAttempts: cfg.Notify.MaxAttempts,
		Backoff:     cfg.Notify.Backoff,
	}, func(t model.Template, status string) {
		metrics.IncNotification(string(t), status)
	}, logging.Redactor(cfg.Runtime.Dev), logger)
	webhookUC := usecase.NewWebhookUseCase(verifier, decoder, ledgerUC, reconcileUC, notifyUC, logger)
	adminUC := usecase.NewAdminUseCase(orderRepo, commissionRepo, pointsRepo, eventRepo, anomalyRepo)

	// ---- Stale event replayer ----
	replayer := sched.NewStaleReplayer(ledgerUC, webhookUC, locker, cfg.Ledger.SweepInterval, cfg.Ledger.SweepBatch, logger)
	go replayer.Start(ctx)

	// ---- HTTP ----
	srv := api.NewServer(webhookUC, adminUC, api.NewAdminAuth(cfg.Admin.JWTSecret, cfg.Admin.Issuer), limiter, api.Options{
		WebhookPath:    cfg.HTTP.WebhookPath,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		HandlerTimeout: cfg.HTTP.HandlerTimeout,
		AdminRateLimit: cfg.Admin.RateLimit,
	}, logger)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("webhook_path", cfg.HTTP.WebhookPath).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// queued notifications get the rest of the budget
	if err := notifyPool.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("notification queue not drained")
	}
	logger.Info().Msg("bye")
}
