package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/otp"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/vault"
	"github.com/spec-kit/helpdesk/internal/worker"
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
	repos := repository.NewRepositories(pool)
	uow := repository.NewUnitOfWork(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	secureVault := vault.New(cfg.Vault)

	otpStore := otp.NewRedisStore(redis.Client)
	otpService := otp.NewService(otpStore, cfg.OTP)

	settingsService := service.NewSettingsService(repos.Settings)
	emailSender := service.NewLogEmailSender(logger, cfg.Notification)

	authService := service.NewAuthService(cfg.Session, service.AuthDependencies{
		UnitOfWork: uow,
		Repos:      repos,
		OTP:        otpService,
		Sender:     emailSender,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		UnitOfWork: uow,
		Repos:      repos,
		Settings:   settingsService,
		Vault:      secureVault,
		Dispatcher: dispatcher,
	})
	tenantService := service.NewTenantService(repos, logger)
	userService := service.NewUserService(cfg.Session, uow, repos, logger)
	notificationService := service.NewNotificationService(dispatcher, emailSender, logger)

	worker.StartNotificationWorker(notificationService)

	sweeper := worker.NewSweepWorker(cfg.Worker, ticketService, logger)
	go sweeper.Run(ctx)

	sessionMiddleware := auth.NewSessionMiddleware(
		authService.TokenCodec(), cfg.Session.CookieName, repos.Users, repos.Tenants)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:              handlers.NewAuthHandler(authService, cfg.Session),
		Tickets:           handlers.NewTicketsHandler(ticketService),
		Admin:             handlers.NewAdminHandler(tenantService, userService, settingsService),
		SessionMiddleware: sessionMiddleware,
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
