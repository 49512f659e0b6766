package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-routing/internal/api/http"
	"github.com/spec-kit/ticket-routing/internal/api/http/handlers"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/persistence"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/service"
	"github.com/spec-kit/ticket-routing/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	lockRepo := repository.NewLockRepository(pool)
	workloadRepo := repository.NewWorkloadRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	breachRepo := repository.NewSLABreachRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	cachedPolicies := repository.NewCachedPolicyRepository(policyRepo, redis.Client, cfg.SLA.PolicyCacheTTL(), logger)

	lockService := service.NewLockService(service.LockDependencies{
		LockRepo:   lockRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		LeaseTTL:   cfg.Lock.LeaseTTL(),
	})
	routingService := service.NewRoutingService(service.RoutingDependencies{
		TicketRepo:   ticketRepo,
		AgentRepo:    agentRepo,
		TeamRepo:     teamRepo,
		RuleRepo:     ruleRepo,
		WorkloadRepo: workloadRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:  ticketRepo,
		Policies:    cachedPolicies,
		BreachRepo:  breachRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	subscribeEventLogging(dispatcher, logger)

	agentMiddleware := auth.NewAgentMiddleware(auth.NewTokenVerifier(cfg.Auth.JWTSecret), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Locks:           handlers.NewLocksHandler(lockService),
		Assignments:     handlers.NewAssignmentsHandler(routingService),
		SLA:             handlers.NewSLAHandler(slaService),
		AgentMiddleware: agentMiddleware,
	})

	sweeper := worker.NewSweeper(*cfg, lockService, routingService, slaService, agentRepo, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweeper.Stop()
	_ = app.Shutdown()
}

func subscribeEventLogging(dispatcher events.Dispatcher, logger *zap.Logger) {
	logEvent := func(ctx context.Context, event events.Event) error {
		logger.Info("engine event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
		)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketAssigned, logEvent)
	dispatcher.Subscribe(events.EventTicketReassigned, logEvent)
	dispatcher.Subscribe(events.EventLockForceReleased, logEvent)
	dispatcher.Subscribe(events.EventSLABreachRecorded, logEvent)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
