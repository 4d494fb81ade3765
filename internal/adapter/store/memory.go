package store

import (
	"context"
	"sync"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// MemoryMenuStore keeps menu documents in process memory. It stands in for
// MongoDB when no URI is configured and in tests.
type MemoryMenuStore struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]domain.MenuDocument
}

// NewMemoryMenuStore creates an empty store.
func NewMemoryMenuStore() *MemoryMenuStore {
	return &MemoryMenuStore{docs: make(map[string]domain.MenuDocument)}
}

// UpsertMenuItems merges each document's fields into the stored one, keyed by "id".
func (s *MemoryMenuStore) UpsertMenuItems(_ context.Context, docs []domain.MenuDocument) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, doc := range docs {
		key := doc.Key()
		if key == "" {
			continue
		}
		stored, ok := s.docs[key]
		if !ok {
			stored = domain.MenuDocument{}
			s.order = append(s.order, key)
		}
		for k, v := range doc {
			if k == domain.FieldInternalID {
				continue
			}
			stored[k] = v
		}
		s.docs[key] = stored
		n++
	}
	return n, nil
}

// ListMenuItems returns copies of all documents in first-insertion order.
func (s *MemoryMenuStore) ListMenuItems(_ context.Context) ([]domain.MenuDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MenuDocument, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.docs[key].Clone())
	}
	return out, nil
}

// Len returns the number of stored documents.
func (s *MemoryMenuStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
