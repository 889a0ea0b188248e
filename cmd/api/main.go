package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repair-pilot/internal/api/http"
	"github.com/spec-kit/repair-pilot/internal/api/http/handlers"
	"github.com/spec-kit/repair-pilot/internal/auth"
	"github.com/spec-kit/repair-pilot/internal/commerce"
	"github.com/spec-kit/repair-pilot/internal/config"
	"github.com/spec-kit/repair-pilot/internal/events"
	"github.com/spec-kit/repair-pilot/internal/observability"
	"github.com/spec-kit/repair-pilot/internal/persistence"
	"github.com/spec-kit/repair-pilot/internal/repository"
	"github.com/spec-kit/repair-pilot/internal/service"
	"github.com/spec-kit/repair-pilot/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locks := service.NewTicketLocks()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	partRepo := repository.NewPartRepository(pool)
	quoteItemRepo := repository.NewQuoteItemRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	operatorRepo := repository.NewOperatorRepository(pool)

	commerceClient := commerce.NewStatusCache(
		commerce.NewHTTPClient(cfg.Commerce),
		redis.Client,
		cfg.Commerce.StatusCacheTTL(),
		logger,
	)
	orderService := service.NewOrderService(commerceClient, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		PartRepo:      partRepo,
		QuoteItemRepo: quoteItemRepo,
		AuditRepo:     auditRepo,
		Orders:        orderService,
		Dispatcher:    dispatcher,
		Locks:         locks,
		Logger:        logger,
	})
	partsService := service.NewPartsService(ticketRepo, partRepo, auditRepo, locks, logger)
	reconcileService := service.NewReconcileService(ticketRepo, auditRepo, dispatcher, locks, metrics, logger)
	authService := service.NewAuthService(cfg.Auth, operatorRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), operatorRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Parts:          handlers.NewPartsHandler(partsService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Webhooks:       handlers.NewWebhooksHandler(reconcileService, cfg.Commerce.WebhookSecret, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
