package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WelcomeMessage is returned by the root endpoint.
const WelcomeMessage = "Welcome to the Inventory Management System"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HomeHandler serves the informational endpoints.
type HomeHandler struct {
	db Pinger
}

// NewHomeHandler creates a new HomeHandler. db may be nil when the store
// has no connection to check.
func NewHomeHandler(db Pinger) *HomeHandler {
	return &HomeHandler{db: db}
}

// RegisterRoutes registers the root and health routes.
func (h *HomeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleWelcome)
	router.Get("/health", h.HandleHealth)
}

// HandleWelcome returns the welcome string.
func (h *HomeHandler) HandleWelcome(c *fiber.Ctx) error {
	return c.SendString(WelcomeMessage)
}

// HandleHealth reports service and store health.
func (h *HomeHandler) HandleHealth(c *fiber.Ctx) error {
	database := "up"
	status := fiber.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			database = "down"
			status = fiber.StatusServiceUnavailable
		}
	}

	health := "healthy"
	if status != fiber.StatusOK {
		health = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   health,
		"database": database,
		"time":     time.Now().Format(time.RFC3339),
	})
}
