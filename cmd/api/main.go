package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-engine/internal/api/http"
	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/assistant"
	"github.com/spec-kit/support-engine/internal/cache"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/persistence"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/service"
	"github.com/spec-kit/support-engine/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	renewalRepo := repository.NewRenewalRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	replies := cache.NewResponseCache(cfg.Cache)
	convs := cache.NewConversationStore(cfg.Conversation)

	resolver := assistant.New(
		assistant.NewClient(cfg.Assistant.APIKey,
			assistant.WithBaseURL(cfg.Assistant.BaseURL),
			assistant.WithTimeout(cfg.Assistant.Timeout())),
		cfg.Assistant,
		logger,
	)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Resolver:    resolver,
		Replies:     replies,
		Convs:       convs,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		KeywordCap:  cfg.Conversation.KeywordCap,
	})
	renewalService := service.NewRenewalService(service.RenewalDependencies{
		RenewalRepo: renewalRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		UnitCost:    cfg.Renewal.UnitCost,
	})
	subscriptionService := service.NewSubscriptionService(subscriptionRepo)

	notifier := service.NewNotificationService(redis.Client, cfg.Notification.OperatorChannel, logger)
	notifier.Register(dispatcher)

	go worker.NewRetentionSweeper(convs, cfg.Worker.SweepInterval(), logger).Run(ctx)
	if cfg.Worker.ExpiryReminderEnabled {
		go worker.NewExpiryNotifier(subscriptionRepo, dispatcher, cfg.Worker.ExpiryCheckInterval(), logger).Run(ctx)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:       handlers.NewTicketsHandler(ticketService),
		Renewals:      handlers.NewRenewalsHandler(renewalService),
		Subscriptions: handlers.NewSubscriptionsHandler(subscriptionService),
		Operator:      handlers.NewOperatorHandler(ticketService, renewalService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
