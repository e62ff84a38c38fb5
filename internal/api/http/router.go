package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/resolution-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Review *handlers.ReviewHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	review := app.Group("/review")
	review.Get("/:ticketID", cfg.Review.Show)
	review.Post("/:ticketID/approve", cfg.Review.Approve)
	review.Post("/:ticketID/reject", cfg.Review.Reject)
}
