package port

import (
	"context"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// Snapshot is one immutable generation of the similarity index.
type Snapshot interface {
	// Generation identifies the snapshot.
	Generation() string

	// Len returns the number of indexed chunks.
	Len() int

	// Search returns up to k chunks ordered by descending cosine similarity.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)
}

// IndexBackend materializes snapshots. A snapshot returned by Build is complete
// and never mutated afterwards.
type IndexBackend interface {
	Build(ctx context.Context, chunks []domain.IndexedChunk) (Snapshot, error)

	// Discard releases the storage held by a snapshot that is no longer published.
	// Callers wait one rebuild after unpublishing before discarding.
	Discard(ctx context.Context, snapshot Snapshot) error
}
