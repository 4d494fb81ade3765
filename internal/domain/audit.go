package domain

import "time"

// AuditLog records every request that reaches the chatbot API.
type AuditLog struct {
	ID         string    `json:"id"          db:"id"`
	SessionID  string    `json:"session_id"  db:"session_id"`
	Action     string    `json:"action"      db:"action"`
	Resource   string    `json:"resource"    db:"resource"`
	Status     int       `json:"status"      db:"status"`
	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	IP         string    `json:"ip"          db:"ip"`
	UserAgent  string    `json:"user_agent"  db:"user_agent"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Audit action constants.
const (
	AuditActionAsk         = "ask"
	AuditActionSync        = "sync"
	AuditActionHTTPRequest = "http_request"
)
