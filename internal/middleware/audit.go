package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// LocalSessionID is the fiber.Locals key handlers use to tag a request with its chat session.
const LocalSessionID = "session_id"

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(entry domain.AuditLog) error
}

// LogAuditWriter writes audit records to the structured log. Used when no
// database is configured.
type LogAuditWriter struct{}

// WriteAudit implements AuditWriter.
func (LogAuditWriter) WriteAudit(entry domain.AuditLog) error {
	slog.Debug("audit",
		"action", entry.Action,
		"resource", entry.Resource,
		"status", entry.Status,
		"duration_ms", entry.DurationMS,
		"session_id", entry.SessionID,
		"ip", entry.IP,
	)
	return nil
}

// AuditMiddleware records every request after it has been handled.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Fiber reuses context objects, so copy request data before the handler runs.
		method := c.Method()
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get(fiber.HeaderUserAgent))

		err := c.Next()

		sessionID, _ := c.Locals(LocalSessionID).(string)
		entry := domain.AuditLog{
			SessionID:  sessionID,
			Action:     auditAction(method, path),
			Resource:   method + " " + path,
			Status:     c.Response().StatusCode(),
			DurationMS: time.Since(start).Milliseconds(),
			IP:         ip,
			UserAgent:  userAgent,
			CreatedAt:  start.UTC(),
		}

		// entry holds only copied values.
		go func() {
			if writeErr := writer.WriteAudit(entry); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}

func auditAction(method, path string) string {
	if method != fiber.MethodPost {
		return domain.AuditActionHTTPRequest
	}
	switch path {
	case "/ask":
		return domain.AuditActionAsk
	case "/sync-now":
		return domain.AuditActionSync
	default:
		return domain.AuditActionHTTPRequest
	}
}
