package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Tickets       *handlers.TicketsHandler
	Renewals      *handlers.RenewalsHandler
	Subscriptions *handlers.SubscriptionsHandler
	Operator      *handlers.OperatorHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	app.Post("/tickets", cfg.Tickets.CreateTicket)
	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Post("/tickets/:id/reply", cfg.Tickets.Reply)
	app.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)

	app.Post("/renewals", cfg.Renewals.CreateRenewal)
	app.Get("/renewals/:id", cfg.Renewals.GetRenewal)

	app.Get("/subscriptions/:name", cfg.Subscriptions.GetSubscription)

	operator := app.Group("/operator")
	operator.Get("/tickets", cfg.Operator.ListEscalated)
	operator.Post("/tickets/:id/reply", cfg.Operator.Reply)
	operator.Post("/tickets/:id/close", cfg.Operator.CloseTicket)
	operator.Get("/renewals", cfg.Operator.ListRenewals)
	operator.Post("/renewals/:id/decision", cfg.Operator.DecideRenewal)
}
