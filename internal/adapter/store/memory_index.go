package store

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// MemoryIndex builds in-process snapshots searched by brute-force cosine similarity.
type MemoryIndex struct{}

// NewMemoryIndex returns the in-memory index backend.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Build copies the chunks into a new immutable snapshot.
func (m *MemoryIndex) Build(_ context.Context, chunks []domain.IndexedChunk) (port.Snapshot, error) {
	snap := &memorySnapshot{
		generation: uuid.NewString(),
		chunks:     make([]domain.IndexedChunk, len(chunks)),
		norms:      make([]float64, len(chunks)),
	}
	copy(snap.chunks, chunks)
	for i, c := range snap.chunks {
		snap.norms[i] = norm(c.Vector)
	}
	return snap, nil
}

// Discard is a no-op; the snapshot is reclaimed by the garbage collector.
func (m *MemoryIndex) Discard(context.Context, port.Snapshot) error {
	return nil
}

type memorySnapshot struct {
	generation string
	chunks     []domain.IndexedChunk
	norms      []float64
}

func (s *memorySnapshot) Generation() string { return s.generation }

func (s *memorySnapshot) Len() int { return len(s.chunks) }

func (s *memorySnapshot) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}

	qn := norm(vector)
	scored := make([]domain.ScoredChunk, 0, len(s.chunks))
	for i, c := range s.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored = append(scored, domain.ScoredChunk{
			IndexedChunk: c,
			Similarity:   cosine(vector, c.Vector, qn, s.norms[i]),
		})
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
