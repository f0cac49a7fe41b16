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

	httptransport "github.com/spec-kit/ticket-beacon/internal/api/http"
	"github.com/spec-kit/ticket-beacon/internal/api/http/handlers"
	"github.com/spec-kit/ticket-beacon/internal/auth"
	"github.com/spec-kit/ticket-beacon/internal/board"
	"github.com/spec-kit/ticket-beacon/internal/classify"
	"github.com/spec-kit/ticket-beacon/internal/clock"
	"github.com/spec-kit/ticket-beacon/internal/config"
	"github.com/spec-kit/ticket-beacon/internal/directory"
	"github.com/spec-kit/ticket-beacon/internal/events"
	"github.com/spec-kit/ticket-beacon/internal/indicator"
	"github.com/spec-kit/ticket-beacon/internal/observability"
	"github.com/spec-kit/ticket-beacon/internal/persistence"
	"github.com/spec-kit/ticket-beacon/internal/preferences"
	"github.com/spec-kit/ticket-beacon/internal/refresh"
	"github.com/spec-kit/ticket-beacon/internal/render"
	"github.com/spec-kit/ticket-beacon/internal/snapshot"
	"github.com/spec-kit/ticket-beacon/internal/source"
	"github.com/spec-kit/ticket-beacon/internal/timefmt"
	"github.com/spec-kit/ticket-beacon/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Upstream.ServiceName, cfg.Auth.ServiceTokenTTLMinutes)
	upstream, err := source.NewClient(cfg.Upstream, tokens, logger)
	if err != nil {
		logger.Fatal("invalid upstream configuration", zap.Error(err))
	}

	var agents directory.Source = upstream
	if pg.Enabled() {
		agents = directory.NewMirror(upstream, directory.NewPostgresDirectory(pg.PoolHandle()), logger)
	}

	classifyCfg := classify.DefaultConfig()
	classifyCfg.WarningWithin = time.Duration(cfg.SLA.WarningHours) * time.Hour
	classifyCfg.CriticalWithin = time.Duration(cfg.SLA.CriticalHours) * time.Hour
	format := timefmt.NewFormatter(cfg.Display.Location(), cfg.Display.TimeLayout)

	renderer, err := render.New(render.Options{
		SubjectMaxRunes: cfg.Display.SubjectMaxRunes,
		TooltipMaxRunes: cfg.Display.TooltipMaxRunes,
		TotalWarning:    cfg.Display.TotalWarning,
		TotalCritical:   cfg.Display.TotalCritical,
	}, format)
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	clk := clock.Real()
	cell := snapshot.NewCell()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	views := cfg.Views.Domain()

	lights := indicator.NewService(dispatcher, cell, views, clk, cfg.Indicator, logger)
	worker.StartIndicatorWorker(lights)

	controller := refresh.New(refresh.Options{
		Interval:      cfg.Refresh.Interval(),
		Timeout:       cfg.Upstream.Timeout(),
		TicketBaseURL: cfg.Upstream.TicketBaseURL,
	}, refresh.Dependencies{
		Tickets:    upstream,
		Agents:     agents,
		Links:      upstream,
		Classifier: classify.New(classifyCfg, format),
		Cell:       cell,
		Clock:      clk,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	controller.Start(ctx)
	defer controller.Stop()

	var prefs preferences.Store = preferences.NewMemoryStore()
	if redis.Enabled() {
		prefs = preferences.NewRedisStore(redis.Client, cfg.App.SessionTTL())
	}
	boards := board.NewManager(board.Options{
		Views:           views,
		DefaultView:     cfg.Views.Default,
		RefreshInterval: cfg.Refresh.Interval(),
		IdleTimeout:     time.Hour,
	}, cell, renderer, prefs, clk, logger)
	sessions := handlers.NewSessions(cfg.App.SessionCookie, cfg.App.SessionTTL())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, cell),
		Dashboard:   handlers.NewDashboardHandler(boards, sessions),
		Tickets:     handlers.NewTicketsHandler(boards),
		Indicator:   handlers.NewIndicatorHandler(lights),
		Preferences: handlers.NewPreferencesHandler(boards, sessions),
		ServiceAuth: auth.NewServiceAuth(tokens, cfg.Auth.RequireServiceToken),
		Metrics:     metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("dashboard listening",
		zap.String("addr", cfg.App.Addr()),
		zap.String("upstream", cfg.Upstream.URL),
		zap.Duration("refresh_interval", cfg.Refresh.Interval()))

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
