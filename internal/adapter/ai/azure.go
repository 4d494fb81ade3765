package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// AzureConfig holds the Azure OpenAI resource settings.
type AzureConfig struct {
	Endpoint            string // e.g. https://my-resource.openai.azure.com
	APIKey              string
	APIVersion          string // e.g. 2024-10-21
	ChatDeployment      string
	EmbeddingDeployment string
	Timeout             time.Duration
}

// AzureOpenAIProvider implements port.AIProvider against Azure OpenAI deployments.
type AzureOpenAIProvider struct {
	cfg        AzureConfig
	httpClient *http.Client
}

// NewAzureOpenAIProvider validates cfg and returns a provider.
func NewAzureOpenAIProvider(cfg AzureConfig) (*AzureOpenAIProvider, error) {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if cfg.APIKey == "" {
		missing = append(missing, "api key")
	}
	if cfg.APIVersion == "" {
		missing = append(missing, "api version")
	}
	if cfg.ChatDeployment == "" {
		missing = append(missing, "chat deployment")
	}
	if cfg.EmbeddingDeployment == "" {
		missing = append(missing, "embedding deployment")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("azure openai: %w: %s", port.ErrMissingConfig, strings.Join(missing, ", "))
	}

	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &AzureOpenAIProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ModelName returns the chat deployment name.
func (a *AzureOpenAIProvider) ModelName() string {
	return a.cfg.ChatDeployment
}

// EmbeddingModel returns the embedding deployment name.
func (a *AzureOpenAIProvider) EmbeddingModel() string {
	return a.cfg.EmbeddingDeployment
}

// Embed generates a vector embedding for the given text.
func (a *AzureOpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. Results are placed by the index
// reported in the response, not by arrival order.
func (a *AzureOpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := a.post(ctx, a.cfg.EmbeddingDeployment, "embeddings", map[string]any{"input": texts})
	if err != nil {
		return nil, fmt.Errorf("azure embed: %w", err)
	}

	var resp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("azure embed decode: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("azure embed: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("azure embed: missing vector for input %d", i)
		}
	}
	return out, nil
}

type azureMessage struct {
	Role       string          `json:"role"`
	Content    *string         `json:"content"`
	ToolCalls  []azureToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type azureToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Complete runs one chat-completions round, offering tools when given.
func (a *AzureOpenAIProvider) Complete(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*domain.Completion, error) {
	payload := map[string]any{
		"messages":    toAzureMessages(messages),
		"temperature": 0,
	}
	if len(tools) > 0 {
		payload["tools"] = functionTools(tools)
	}

	body, err := a.post(ctx, a.cfg.ChatDeployment, "chat/completions", payload)
	if err != nil {
		return nil, fmt.Errorf("azure chat: %w", err)
	}

	var resp struct {
		Choices []struct {
			Message      azureMessage `json:"message"`
			FinishReason string       `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("azure chat decode: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("azure chat: no choices in response")
	}

	choice := resp.Choices[0]
	out := &domain.Completion{FinishReason: choice.FinishReason}
	if choice.Message.Content != nil {
		out.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toAzureMessages(messages []domain.Message) []azureMessage {
	out := make([]azureMessage, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		am := azureMessage{Role: m.Role, Content: &content, ToolCallID: m.ToolCallID}
		if len(m.ToolCalls) > 0 && m.Content == "" {
			am.Content = nil
		}
		for _, tc := range m.ToolCalls {
			var call azureToolCall
			call.ID = tc.ID
			call.Type = "function"
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			am.ToolCalls = append(am.ToolCalls, call)
		}
		out = append(out, am)
	}
	return out
}

// functionTools renders tool definitions in the OpenAI "function" tool format,
// which Ollama also accepts.
func functionTools(tools []domain.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}
	return out
}

func (a *AzureOpenAIProvider) post(ctx context.Context, deployment, operation string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		a.cfg.Endpoint, url.PathEscape(deployment), operation, url.QueryEscape(a.cfg.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure openai API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
