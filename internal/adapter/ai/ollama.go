package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.AIProvider using the Ollama REST API.
// Supports separate endpoints for embed vs chat (different URLs, models, and tokens).
type OllamaProvider struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama-backed AI provider with separate embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		embed:      embed,
		chat:       chat,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ModelName returns the chat model identifier.
func (o *OllamaProvider) ModelName() string {
	return o.chat.Model
}

// EmbeddingModel returns the embedding model identifier.
func (o *OllamaProvider) EmbeddingModel() string {
	return o.embed.Model
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": o.embed.Model,
		"input": texts,
	}

	body, err := o.post(ctx, o.embed, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// Complete runs one non-streaming /api/chat round with the given tools.
func (o *OllamaProvider) Complete(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*domain.Completion, error) {
	payload := map[string]any{
		"model":    o.chat.Model,
		"messages": toOllamaMessages(messages),
		"stream":   false,
		"options":  map[string]any{"temperature": 0},
	}
	if len(tools) > 0 {
		payload["tools"] = functionTools(tools)
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	var resp struct {
		Message    ollamaMessage `json:"message"`
		DoneReason string        `json:"done_reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama chat decode: %w", err)
	}

	out := &domain.Completion{
		Content:      resp.Message.Content,
		FinishReason: resp.DoneReason,
	}
	for i, tc := range resp.Message.ToolCalls {
		args := string(tc.Function.Arguments)
		// Ollama returns arguments as an object; some models emit a JSON string instead.
		var quoted string
		if json.Unmarshal(tc.Function.Arguments, &quoted) == nil {
			args = quoted
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func toOllamaMessages(messages []domain.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content}
		if m.Role == domain.RoleTool {
			om.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var call ollamaToolCall
			call.Function.Name = tc.Name
			call.Function.Arguments = json.RawMessage(`{}`)
			if json.Valid([]byte(tc.Arguments)) {
				call.Function.Arguments = json.RawMessage(tc.Arguments)
			}
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (o *OllamaProvider) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
