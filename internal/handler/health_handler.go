package handler

import (
	"github.com/gofiber/fiber/v3"
)

// ReadinessChecker reports whether the service can answer from the menu.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	appName string
	checker ReadinessChecker
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(appName string, checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{appName: appName, checker: checker}
}

// Register sets up health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/healthz", h.Health)
	router.Get("/readyz", h.Ready)
}

// Health always reports ok while the process serves requests.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "app": h.appName})
}

// Ready reports 503 until the first knowledge base has been published.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	if !h.checker.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
