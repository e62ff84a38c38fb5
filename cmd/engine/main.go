package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/resolution-engine/internal/api/http"
	"github.com/spec-kit/resolution-engine/internal/api/http/handlers"
	"github.com/spec-kit/resolution-engine/internal/auth"
	"github.com/spec-kit/resolution-engine/internal/config"
	"github.com/spec-kit/resolution-engine/internal/engine"
	"github.com/spec-kit/resolution-engine/internal/events"
	"github.com/spec-kit/resolution-engine/internal/notify"
	"github.com/spec-kit/resolution-engine/internal/observability"
	"github.com/spec-kit/resolution-engine/internal/persistence"
	"github.com/spec-kit/resolution-engine/internal/repository"
	"github.com/spec-kit/resolution-engine/internal/scheduler"
	"github.com/spec-kit/resolution-engine/internal/service"
	"github.com/spec-kit/resolution-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	// Without a DSN the engine runs against the in-memory store, which is
	// only useful for local experimentation.
	var ticketStore repository.TicketStore
	var recordStore repository.RecordStore
	if pool := pg.PoolHandle(); pool != nil {
		ticketStore = repository.NewTicketRepository(pool)
		recordStore = repository.NewRecordRepository(pool)
	} else {
		logger.Warn("running with in-memory store; state will not survive restarts")
		mem := repository.NewMemoryStore()
		ticketStore = mem
		recordStore = mem
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	metrics.RegisterHandlers(dispatcher)

	var notifier notify.Notifier
	if cfg.Notification.SMTPHost != "" {
		notifier = notify.NewSMTPMailer(cfg.Notification, logger)
	} else {
		logger.Warn("SMTP_HOST not set; notifications go to the log only")
		notifier = notify.NewLogMailer(logger)
	}

	deliveryWorker := worker.NewDeliveryWorker(ticketStore, notifier, logger,
		cfg.Notification.MaxDeliveryAttempts, cfg.Notification.RetryDelay())
	deliveryWorker.Start(ctx)

	tokens := auth.NewReviewTokenManager(cfg.Review.TokenSecret, cfg.Review.TokenTTLMinutes)
	links := auth.NewReviewLinkBuilder(cfg.Review.BaseURL, tokens)

	applier := engine.NewApplier(engine.ApplierDependencies{
		Store:      ticketStore,
		Notifier:   notifier,
		Links:      links,
		Retrier:    deliveryWorker,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	eng := engine.NewEngine(engine.EngineDependencies{
		Store:      ticketStore,
		Matcher:    engine.NewMatcher(recordStore),
		Policy:     engine.NewPolicy(cfg.Engine.AutoCloseConfidence, cfg.Engine.EscalateConfidence),
		Applier:    applier,
		Dispatcher: dispatcher,
		Logger:     logger,
		Workers:    cfg.Engine.Workers,
	})

	var lock scheduler.Locker
	if passLock := redis.NewPassLock("resolution-engine:pass-lock", cfg.Engine.PassLockTTL()); passLock != nil {
		lock = passLock
	}
	sched := scheduler.New(eng, logger, scheduler.Options{
		Interval:    cfg.Engine.Interval(),
		BackoffBase: cfg.Engine.BackoffBase(),
		BackoffCap:  cfg.Engine.BackoffCap(),
		Lock:        lock,
	})
	sched.Start(ctx)

	reviewService := service.NewReviewService(ticketStore, dispatcher, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Review: handlers.NewReviewHandler(reviewService, tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	sched.Wait()
	deliveryWorker.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
