package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/restaurant-chatbot/internal/service"
)

// Refresher synchronizes the menu and rebuilds the knowledge base.
type Refresher interface {
	Refresh(ctx context.Context) error
	Status() (service.RefreshStatus, service.IndexStatus)
}

// SyncHandler exposes manual synchronization.
type SyncHandler struct {
	refresher Refresher
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(refresher Refresher) *SyncHandler {
	return &SyncHandler{refresher: refresher}
}

// Register sets up sync routes.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("/sync-now", h.SyncNow)
	router.Get("/sync-status", h.SyncStatus)
}

// SyncNow runs one refresh cycle and reports the outcome.
func (h *SyncHandler) SyncNow(c fiber.Ctx) error {
	slog.Info("manual synchronization triggered", "ip", c.IP())

	if err := h.refresher.Refresh(c.Context()); err != nil {
		slog.Error("manual synchronization failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Synchronization failed. Check logs.",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Menu data synchronized and vector store reloaded.",
	})
}

// SyncStatus reports the last refresh and the published index.
func (h *SyncHandler) SyncStatus(c fiber.Ctx) error {
	refresh, index := h.refresher.Status()
	return c.JSON(fiber.Map{
		"refresh": refresh,
		"index":   index,
	})
}
