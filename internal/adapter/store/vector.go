package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// PgVectorIndex stores snapshots in the menu_chunks table. Each snapshot is the
// set of rows sharing one generation id.
type PgVectorIndex struct {
	store *PostgresStore
}

// NewPgVectorIndex creates an index backend on top of the given Postgres store.
func NewPgVectorIndex(store *PostgresStore) *PgVectorIndex {
	return &PgVectorIndex{store: store}
}

// Reset removes every stored generation. Snapshots do not survive a restart.
func (v *PgVectorIndex) Reset(ctx context.Context) error {
	if _, err := v.store.db.ExecContext(ctx, `DELETE FROM menu_chunks`); err != nil {
		return fmt.Errorf("reset menu chunks: %w", err)
	}
	return nil
}

// Build inserts all chunks under a new generation in one transaction.
func (v *PgVectorIndex) Build(ctx context.Context, chunks []domain.IndexedChunk) (port.Snapshot, error) {
	generation := uuid.NewString()

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO menu_chunks (id, generation, document_index, position, content, metadata, vector)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::vector)`)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal chunk metadata: %w", err)
		}
		if c.Metadata == nil {
			meta = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx,
			id, generation, c.DocumentIndex, c.Position, c.Content, string(meta), vectorToString(c.Vector),
		); err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit chunks: %w", err)
	}
	return &pgSnapshot{index: v, generation: generation, size: len(chunks)}, nil
}

// Discard deletes the rows of a snapshot that is no longer published.
func (v *PgVectorIndex) Discard(ctx context.Context, snapshot port.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	_, err := v.store.db.ExecContext(ctx, `DELETE FROM menu_chunks WHERE generation = $1`, snapshot.Generation())
	if err != nil {
		return fmt.Errorf("discard generation %s: %w", snapshot.Generation(), err)
	}
	return nil
}

type pgSnapshot struct {
	index      *PgVectorIndex
	generation string
	size       int
}

func (s *pgSnapshot) Generation() string { return s.generation }

func (s *pgSnapshot) Len() int { return s.size }

// Search performs a cosine similarity search restricted to this generation.
func (s *pgSnapshot) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || s.size == 0 {
		return nil, nil
	}

	vectorStr := vectorToString(vector)
	query := `SELECT c.id, c.document_index, c.position, c.content, c.metadata,
	                 1 - (c.vector <=> $1::vector) AS similarity
	          FROM menu_chunks c
	          WHERE c.generation = $2
	          ORDER BY c.vector <=> $1::vector
	          LIMIT $3`

	rows, err := s.index.store.db.QueryContext(ctx, query, vectorStr, s.generation, k)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		var meta []byte
		if err := rows.Scan(
			&sc.ID, &sc.DocumentIndex, &sc.Position, &sc.Content, &meta, &sc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &sc.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
