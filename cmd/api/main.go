package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/draft-pipeline/internal/api/http"
	"github.com/spec-kit/draft-pipeline/internal/api/http/handlers"
	"github.com/spec-kit/draft-pipeline/internal/clients"
	"github.com/spec-kit/draft-pipeline/internal/clock"
	"github.com/spec-kit/draft-pipeline/internal/config"
	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/inflight"
	"github.com/spec-kit/draft-pipeline/internal/observability"
	"github.com/spec-kit/draft-pipeline/internal/persistence"
	"github.com/spec-kit/draft-pipeline/internal/repository"
	"github.com/spec-kit/draft-pipeline/internal/seed"
	"github.com/spec-kit/draft-pipeline/internal/selection"
	"github.com/spec-kit/draft-pipeline/internal/service"
	"github.com/spec-kit/draft-pipeline/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	broker, err := persistence.NewAMQP(ctx, cfg.AMQP, logger)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer broker.Close()

	tickets, err := seed.Load(cfg.Seed.Path)
	if err != nil {
		logger.Fatal("failed to load seed tickets", zap.Error(err))
	}
	store, err := repository.NewTicketStore(tickets)
	if err != nil {
		logger.Fatal("invalid seed tickets", zap.Error(err))
	}
	logger.Info("tickets loaded", zap.Int("count", len(tickets)), zap.String("seed_file", cfg.Seed.Path))

	var history repository.TicketHistoryRepository
	if pg.Enabled() {
		history = repository.NewTicketHistoryRepository(pg.PoolHandle())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tracker := inflight.NewTracker()
	sessions := selection.NewManager()

	suggester := clients.NewSuggestionClient(clients.Options{
		BaseURL: cfg.Suggestion.BaseURL,
		Model:   cfg.Suggestion.Model,
		Timeout: cfg.Suggestion.Timeout,
	})
	generator := clients.NewGenerationClient(clients.Options{
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
	})

	draftService := service.NewDraftService(service.DraftDependencies{
		Tickets:    store,
		Tracker:    tracker,
		Sessions:   sessions,
		Generator:  generator,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      clock.Real(),
		Policy:     cfg.Pipeline,
		Logger:     logger,
	})
	sourceService := service.NewSourceService(service.SourceDependencies{
		Tickets:   store,
		Suggester: suggester,
		Sessions:  sessions,
		Drafts:    draftService,
		Logger:    logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Tickets:  store,
		Tracker:  tracker,
		Sessions: sessions,
		History:  history,
	})
	analyticsService := service.NewAnalyticsService(store)

	var notifier service.Notifier
	if cfg.Notification.WebhookURL != "" {
		notifier = clients.NewWebhookClient(cfg.Notification.WebhookURL, cfg.Notification.Timeout)
	}
	notificationService := service.NewNotificationService(dispatcher, logger, notifier, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	var sinks []worker.Sink
	if history != nil {
		sinks = append(sinks, worker.NewHistorySink(history))
	}
	if redis.Enabled() {
		sinks = append(sinks, worker.NewRedisSink(redis))
	}
	if broker.Enabled() {
		sinks = append(sinks, worker.NewAMQPSink(broker))
	}
	relay := worker.NewEventRelay(cfg.Pipeline.RelayBuffer, logger, metrics, sinks...)
	worker.StartEventRelay(dispatcher, relay, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
		"rabbitmq": broker,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    healthHandler,
		Tickets:   handlers.NewTicketsHandler(ticketService, draftService, sourceService),
		Sources:   handlers.NewSourcesHandler(sourceService),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, metrics),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	draftService.Close()
	notificationService.Wait()
	if err := relay.Stop(shutdownCtx); err != nil {
		logger.Warn("event relay did not drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
