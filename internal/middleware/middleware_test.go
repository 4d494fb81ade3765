package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")
}

func TestRateLimiter_Handler(t *testing.T) {
	app := fiber.New()
	app.Get("/", NewRateLimiter(1).Handler(), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

type chanWriter chan domain.AuditLog

func (w chanWriter) WriteAudit(entry domain.AuditLog) error {
	w <- entry
	return nil
}

func TestAuditMiddleware(t *testing.T) {
	writer := make(chanWriter, 1)
	app := fiber.New()
	app.Use(AuditMiddleware(writer))
	app.Post("/sync-now", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
	})

	req := httptest.NewRequest(http.MethodPost, "/sync-now", nil)
	req.Header.Set("User-Agent", "uptime-check/1.0")
	_, err := app.Test(req)
	require.NoError(t, err)

	select {
	case entry := <-writer:
		assert.Equal(t, domain.AuditActionSync, entry.Action)
		assert.Equal(t, "POST /sync-now", entry.Resource)
		assert.Equal(t, http.StatusInternalServerError, entry.Status)
		assert.Equal(t, "uptime-check/1.0", entry.UserAgent)
		assert.Empty(t, entry.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not written")
	}
}

func TestAuditAction(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{fiber.MethodPost, "/ask", domain.AuditActionAsk},
		{fiber.MethodPost, "/sync-now", domain.AuditActionSync},
		{fiber.MethodGet, "/ask", domain.AuditActionHTTPRequest},
		{fiber.MethodGet, "/widget", domain.AuditActionHTTPRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, auditAction(tt.method, tt.path))
		})
	}
}
