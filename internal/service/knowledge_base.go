package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/metrics"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// UnavailableMessage is returned by Retrieve while no index has been published.
const UnavailableMessage = "The knowledge base is currently unavailable."

// DefaultTopK is the number of chunks returned per query.
const DefaultTopK = 5

// KnowledgeBaseConfig tunes indexing and retrieval.
type KnowledgeBaseConfig struct {
	TopK           int
	EmbedBatchSize int
}

// KnowledgeBase owns the published similarity index snapshot. Readers see
// either the previous or the new complete snapshot, never a partial one.
// A replaced snapshot is retired for one rebuild before its storage is
// discarded, so searches that loaded it just before the swap still complete.
type KnowledgeBase struct {
	embedder port.Embedder
	backend  port.IndexBackend
	splitter *Splitter
	cfg      KnowledgeBaseConfig
	metrics  *metrics.Metrics

	current atomic.Pointer[publishedSnapshot]

	retireMu sync.Mutex
	retired  port.Snapshot
}

type publishedSnapshot struct {
	snapshot  port.Snapshot
	documents int
	builtAt   time.Time
}

// NewKnowledgeBase creates an empty knowledge base. m may be nil.
func NewKnowledgeBase(embedder port.Embedder, backend port.IndexBackend, splitter *Splitter, cfg KnowledgeBaseConfig, m *metrics.Metrics) *KnowledgeBase {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 16
	}
	if splitter == nil {
		splitter = NewSplitter()
	}
	return &KnowledgeBase{
		embedder: embedder,
		backend:  backend,
		splitter: splitter,
		cfg:      cfg,
		metrics:  m,
	}
}

// Rebuild splits and embeds docs into a new snapshot and publishes it.
// With no documents it returns ErrNoDocuments and keeps the current snapshot.
// On error the current snapshot stays published.
func (kb *KnowledgeBase) Rebuild(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		slog.Warn("no documents to index, keeping current knowledge base")
		return port.ErrNoDocuments
	}
	start := time.Now()

	chunks := kb.chunk(docs)
	if len(chunks) == 0 {
		slog.Warn("documents produced no chunks, keeping current knowledge base", "documents", len(docs))
		return port.ErrNoDocuments
	}

	if err := kb.embed(ctx, chunks); err != nil {
		return err
	}

	snap, err := kb.backend.Build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	prev := kb.current.Swap(&publishedSnapshot{snapshot: snap, documents: len(docs), builtAt: time.Now()})
	if prev != nil {
		kb.retire(ctx, prev.snapshot)
	}

	took := time.Since(start)
	kb.metrics.ObserveRebuild(len(chunks), took)
	slog.Info("knowledge base rebuilt",
		"documents", len(docs),
		"chunks", len(chunks),
		"generation", snap.Generation(),
		"duration", took,
	)
	return nil
}

// retire parks snap until the next rebuild and discards the snapshot parked
// by the previous one.
func (kb *KnowledgeBase) retire(ctx context.Context, snap port.Snapshot) {
	kb.retireMu.Lock()
	stale := kb.retired
	kb.retired = snap
	kb.retireMu.Unlock()

	if stale == nil {
		return
	}
	if err := kb.backend.Discard(ctx, stale); err != nil {
		slog.Warn("discard retired index failed", "generation", stale.Generation(), "error", err)
	}
}

func (kb *KnowledgeBase) chunk(docs []domain.Document) []domain.IndexedChunk {
	var chunks []domain.IndexedChunk
	for i, doc := range docs {
		for j, piece := range kb.splitter.Split(doc.Text) {
			meta := make(map[string]any, len(doc.Metadata))
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, domain.IndexedChunk{
				ID:            uuid.NewString(),
				DocumentIndex: i,
				Position:      j,
				Content:       piece,
				Metadata:      meta,
			})
		}
	}
	return chunks
}

func (kb *KnowledgeBase) embed(ctx context.Context, chunks []domain.IndexedChunk) error {
	for start := 0; start < len(chunks); start += kb.cfg.EmbedBatchSize {
		end := min(start+kb.cfg.EmbedBatchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		vectors, err := kb.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vectors))
		}
		for i, v := range vectors {
			chunks[start+i].Vector = v
		}
	}
	return nil
}

// Search returns up to k chunks nearest to query. k <= 0 uses the configured TopK.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	published := kb.current.Load()
	if published == nil {
		return nil, port.ErrIndexUnavailable
	}
	if k <= 0 {
		k = kb.cfg.TopK
	}

	vector, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := published.snapshot.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	return results, nil
}

// Retrieve returns the text of the TopK nearest chunks joined by blank lines,
// or UnavailableMessage when nothing has been indexed yet.
func (kb *KnowledgeBase) Retrieve(ctx context.Context, query string) (string, error) {
	results, err := kb.Search(ctx, query, kb.cfg.TopK)
	if err != nil {
		if errors.Is(err, port.ErrIndexUnavailable) {
			return UnavailableMessage, nil
		}
		return "", err
	}

	return joinChunks(results), nil
}

func joinChunks(results []domain.ScoredChunk) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}

// Ready reports whether a snapshot has been published.
func (kb *KnowledgeBase) Ready() bool {
	return kb.current.Load() != nil
}

// IndexStatus describes the published snapshot.
type IndexStatus struct {
	Ready      bool      `json:"ready"`
	Generation string    `json:"generation,omitempty"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	BuiltAt    time.Time `json:"built_at,omitzero"`
}

// Status returns a description of the published snapshot.
func (kb *KnowledgeBase) Status() IndexStatus {
	published := kb.current.Load()
	if published == nil {
		return IndexStatus{}
	}
	return IndexStatus{
		Ready:      true,
		Generation: published.snapshot.Generation(),
		Documents:  published.documents,
		Chunks:     published.snapshot.Len(),
		BuiltAt:    published.builtAt,
	}
}
