package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/restaurant-chatbot/internal/logging"
	"github.com/arturoeanton/restaurant-chatbot/internal/metrics"
	"github.com/arturoeanton/restaurant-chatbot/internal/middleware"
	"github.com/arturoeanton/restaurant-chatbot/internal/service"
)

// HeaderSessionID lets clients name their chat session without a body field.
const HeaderSessionID = "X-Session-ID"

// Asker answers a question within a chat session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (string, error)
}

// ChatHandler serves the question answering endpoint.
type ChatHandler struct {
	asker   Asker
	limiter fiber.Handler
	metrics *metrics.Metrics
}

// NewChatHandler creates a chat handler. limiter and m may be nil.
func NewChatHandler(asker Asker, limiter fiber.Handler, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{asker: asker, limiter: limiter, metrics: m}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	if h.limiter != nil {
		router.Post("/ask", h.limiter, h.Ask)
		return
	}
	router.Post("/ask", h.Ask)
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// Ask answers {"question": ..., "session_id"?: ...}.
func (h *ChatHandler) Ask(c fiber.Ctx) error {
	start := time.Now()

	var body askRequest
	if err := c.Bind().JSON(&body); err != nil || strings.TrimSpace(body.Question) == "" {
		h.metrics.ObserveAsk("bad_request", time.Since(start))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing question"})
	}

	sessionID := strings.TrimSpace(body.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(strings.Clone(c.Get(HeaderSessionID)))
	}
	if sessionID == "" {
		sessionID = service.DefaultSessionID
	}
	c.Locals(middleware.LocalSessionID, sessionID)

	answer, err := h.asker.Ask(c.Context(), sessionID, body.Question)
	if err != nil {
		logging.WithSession(sessionID).Error("ask failed", "error", err)
		h.metrics.ObserveAsk("error", time.Since(start))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.metrics.ObserveAsk("ok", time.Since(start))
	return c.JSON(fiber.Map{
		"answer":     answer,
		"session_id": sessionID,
	})
}
