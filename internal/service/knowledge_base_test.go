package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/restaurant-chatbot/internal/adapter/store"
	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

type recordingBackend struct {
	*store.MemoryIndex
	mu        sync.Mutex
	discarded []string
}

func (b *recordingBackend) Discard(ctx context.Context, s port.Snapshot) error {
	b.mu.Lock()
	b.discarded = append(b.discarded, s.Generation())
	b.mu.Unlock()
	return b.MemoryIndex.Discard(ctx, s)
}

func newTestKB(t *testing.T, embedder *fakeEmbedder) (*KnowledgeBase, *recordingBackend) {
	t.Helper()
	backend := &recordingBackend{MemoryIndex: store.NewMemoryIndex()}
	kb := NewKnowledgeBase(embedder, backend, NewSplitter(), KnowledgeBaseConfig{TopK: 5, EmbedBatchSize: 2}, nil)
	return kb, backend
}

func menuDocuments() []domain.Document {
	items := sampleMenu()
	for _, it := range items {
		it[domain.FieldCategoryList] = CategoryList(it[domain.FieldCategories])
	}
	return BuildDocuments(items)
}

func TestKnowledgeBase_UnavailableBeforeFirstBuild(t *testing.T) {
	kb, _ := newTestKB(t, &fakeEmbedder{})

	assert.False(t, kb.Ready())
	got, err := kb.Retrieve(t.Context(), "mango")
	require.NoError(t, err)
	assert.Equal(t, UnavailableMessage, got)

	_, err = kb.Search(t.Context(), "mango", 3)
	assert.ErrorIs(t, err, port.ErrIndexUnavailable)
}

func TestKnowledgeBase_RebuildAndRetrieve(t *testing.T) {
	embedder := &fakeEmbedder{}
	kb, _ := newTestKB(t, embedder)

	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	assert.True(t, kb.Ready())
	assert.Equal(t, []int{2, 1}, embedder.batchSizes)

	got, err := kb.Retrieve(t.Context(), "How much is the mango smoothie?")
	require.NoError(t, err)
	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 3)
	assert.True(t, strings.HasPrefix(parts[0], "Name: Mango Smoothie"))

	results, err := kb.Search(t.Context(), "chicken kottu", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "Chicken Kottu")
	assert.Equal(t, int64(2), results[0].Metadata["id"])
	assert.NotEmpty(t, results[0].ID)

	status := kb.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, 3, status.Documents)
	assert.Equal(t, 3, status.Chunks)
}

func TestKnowledgeBase_ZeroDocumentsKeepsSnapshot(t *testing.T) {
	kb, backend := newTestKB(t, &fakeEmbedder{})
	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	generation := kb.Status().Generation

	err := kb.Rebuild(t.Context(), nil)
	assert.ErrorIs(t, err, port.ErrNoDocuments)
	assert.Equal(t, generation, kb.Status().Generation)
	assert.Empty(t, backend.discarded)
}

func TestKnowledgeBase_FailedRebuildKeepsSnapshot(t *testing.T) {
	embedder := &fakeEmbedder{}
	kb, _ := newTestKB(t, embedder)
	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	generation := kb.Status().Generation

	embedder.failBatch = true
	err := kb.Rebuild(t.Context(), menuDocuments())
	require.Error(t, err)
	assert.Equal(t, generation, kb.Status().Generation)

	got, err := kb.Retrieve(t.Context(), "lime tea")
	require.NoError(t, err)
	assert.Contains(t, got, "Lime Tea")
}

func TestKnowledgeBase_RebuildDiscardsPrevious(t *testing.T) {
	kb, backend := newTestKB(t, &fakeEmbedder{})
	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	first := kb.Status().Generation
	firstSnap := kb.current.Load().snapshot

	t.Run("replaced snapshot is retired, not discarded", func(t *testing.T) {
		require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()[:1]))
		assert.NotEqual(t, first, kb.Status().Generation)
		assert.Equal(t, 1, kb.Status().Chunks)
		assert.Empty(t, backend.discarded)

		hits, err := firstSnap.Search(t.Context(), embedWords("mango smoothie"), 3)
		require.NoError(t, err)
		assert.NotEmpty(t, hits)
	})

	t.Run("retired snapshot is discarded on the next rebuild", func(t *testing.T) {
		second := kb.Status().Generation
		require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
		assert.Equal(t, []string{first}, backend.discarded)

		require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
		assert.Equal(t, []string{first, second}, backend.discarded)
	})
}

func TestKnowledgeBase_ConcurrentReadsDuringRebuild(t *testing.T) {
	kb, _ := newTestKB(t, &fakeEmbedder{})
	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got, err := kb.Retrieve(context.Background(), "mango")
				assert.NoError(t, err)
				assert.NotEqual(t, UnavailableMessage, got)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	}
	wg.Wait()
}

func TestMenuSearchTool(t *testing.T) {
	kb, _ := newTestKB(t, &fakeEmbedder{})
	require.NoError(t, kb.Rebuild(t.Context(), menuDocuments()))
	tool := NewMenuSearchTool(kb)

	assert.Equal(t, MenuSearchToolName, tool.Definition().Name)

	got, err := tool.Call(t.Context(), []byte(`{"query":"mango"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "Name: Mango Smoothie"))

	_, err = tool.Call(t.Context(), []byte(`{"query":"  "}`))
	assert.ErrorIs(t, err, port.ErrInvalidArguments)

	_, err = tool.Call(t.Context(), []byte(`not json`))
	assert.ErrorIs(t, err, port.ErrInvalidArguments)
}
