package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS menu_chunks (
		id             UUID PRIMARY KEY,
		generation     TEXT NOT NULL,
		document_index INTEGER NOT NULL,
		position       INTEGER NOT NULL,
		content        TEXT NOT NULL,
		metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
		vector         vector NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS menu_chunks_generation_idx ON menu_chunks (generation)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		session_id  TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		status      INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		ip          TEXT NOT NULL DEFAULT '',
		user_agent  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_created_at_idx ON audit_logs (created_at DESC)`,
}

// EnsureSchema creates the pgvector extension and the tables used by the
// index backend and the audit writer.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(entry domain.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `INSERT INTO audit_logs (session_id, action, resource, status, duration_ms, ip, user_agent, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		entry.SessionID, entry.Action, entry.Resource, entry.Status, entry.DurationMS,
		entry.IP, entry.UserAgent, entry.CreatedAt,
	)
	return err
}

// ListAuditLogs returns recent audit logs with optional filters.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id, session_id, action, resource, status, duration_ms, ip, user_agent, created_at
	          FROM audit_logs`
	args := []any{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.SessionID, &l.Action, &l.Resource, &l.Status,
			&l.DurationMS, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
