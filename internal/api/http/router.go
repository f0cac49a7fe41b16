package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-beacon/internal/api/http/handlers"
	"github.com/spec-kit/ticket-beacon/internal/auth"
	"github.com/spec-kit/ticket-beacon/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Dashboard   *handlers.DashboardHandler
	Tickets     *handlers.TicketsHandler
	Indicator   *handlers.IndicatorHandler
	Preferences *handlers.PreferencesHandler
	ServiceAuth *auth.ServiceAuth
	Metrics     *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Fixed paths are registered before the
// view catch-all.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api", cfg.ServiceAuth.Handle)
	api.Get("/tickets/:view", cfg.Tickets.List)
	api.Get("/indicator/:view", cfg.Indicator.Get)

	app.Post("/preferences", cfg.Preferences.Update)

	app.Get("/", cfg.Dashboard.Root)
	app.Get("/:view", cfg.Dashboard.Page)
	app.Get("/:view/indicators", cfg.Dashboard.Indicators)
	app.Get("/:view/sections/:section", cfg.Dashboard.Section)
	app.Post("/:view/sections/:section/sort", cfg.Dashboard.Sort)
	app.Get("/:view/modal/:id", cfg.Dashboard.OpenModal)
	app.Delete("/:view/modal/:id", cfg.Dashboard.CloseModal)
}
