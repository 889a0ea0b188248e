package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-pilot/internal/api/http/handlers"
	"github.com/spec-kit/repair-pilot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Parts          *handlers.PartsHandler
	Orders         *handlers.OrdersHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Webhook ingress stays outside operator
// auth; its deliveries authenticate via HMAC signature instead.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhooks/orders-paid", cfg.Webhooks.OrdersPaid)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/photos", cfg.Tickets.AddPhotos)
	tickets.Delete("/:id/photos", cfg.Tickets.RemovePhoto)

	tickets.Get("/:id/parts", cfg.Parts.ListParts)
	tickets.Post("/:id/parts", cfg.Parts.AddPart)
	tickets.Put("/:id/parts/:partId", cfg.Parts.UpdatePart)
	tickets.Delete("/:id/parts/:partId", cfg.Parts.RemovePart)

	orders := app.Group("/orders", cfg.AuthMiddleware.Handle, auth.RequireRole())
	orders.Get("/:id/status", cfg.Orders.GetStatus)
}
