package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

func newTestAzure(t *testing.T, url string) *AzureOpenAIProvider {
	t.Helper()
	p, err := NewAzureOpenAIProvider(AzureConfig{
		Endpoint:            url + "/",
		APIKey:              "secret",
		APIVersion:          "2024-10-21",
		ChatDeployment:      "gpt-4o",
		EmbeddingDeployment: "text-embedding-3-large",
	})
	require.NoError(t, err)
	return p
}

func TestNewAzureOpenAIProvider_MissingConfig(t *testing.T) {
	_, err := NewAzureOpenAIProvider(AzureConfig{Endpoint: "https://x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrMissingConfig)
	assert.Contains(t, err.Error(), "api key")
}

func TestAzure_EmbedBatch_PlacesByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/text-embedding-3-large/embeddings", r.URL.Path)
		assert.Equal(t, "2024-10-21", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.Input)

		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	p := newTestAzure(t, server.URL)
	vectors, err := p.EmbedBatch(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestAzure_EmbedBatch_MissingVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	p := newTestAzure(t, server.URL)
	_, err := p.EmbedBatch(t.Context(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing vector")
}

func TestAzure_Complete(t *testing.T) {
	t.Run("tool calls", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			tools, ok := body["tools"].([]any)
			require.True(t, ok)
			require.Len(t, tools, 1)
			fn := tools[0].(map[string]any)["function"].(map[string]any)
			assert.Equal(t, "menu_search", fn["name"])

			_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"menu_search","arguments":"{\"query\":\"mango\"}"}}]}}]}`))
		}))
		defer server.Close()

		p := newTestAzure(t, server.URL)
		got, err := p.Complete(t.Context(),
			[]domain.Message{{Role: domain.RoleUser, Content: "mango?"}},
			[]domain.ToolDefinition{{Name: "menu_search", Description: "menu"}})
		require.NoError(t, err)
		assert.Equal(t, "tool_calls", got.FinishReason)
		require.Len(t, got.ToolCalls, 1)
		assert.Equal(t, domain.ToolCall{ID: "call_1", Name: "menu_search", Arguments: `{"query":"mango"}`}, got.ToolCalls[0])
	})

	t.Run("final text without tools", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, hasTools := body["tools"]
			assert.False(t, hasTools)
			_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"Hello!"}}]}`))
		}))
		defer server.Close()

		p := newTestAzure(t, server.URL)
		got, err := p.Complete(t.Context(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Hello!", got.Content)
		assert.Empty(t, got.ToolCalls)
	})

	t.Run("upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		p := newTestAzure(t, server.URL)
		_, err := p.Complete(t.Context(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})
}
