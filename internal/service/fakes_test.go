package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// fakeEmbedder maps text onto a small keyword space so that similarity
// follows shared menu words.
type fakeEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
	failBatch  bool
}

var fakeVocabulary = []string{"mango", "smoothie", "kottu", "chicken", "rice", "curry", "tea", "price", "lime"}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return embedWords(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(texts))
	f.mu.Unlock()
	if f.failBatch {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedWords(t)
	}
	return out, nil
}

func embedWords(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(fakeVocabulary)+1)
	for i, w := range fakeVocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(fakeVocabulary)] = 0.01
	return v
}

// scriptedModel replays completions in order and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	steps     []func(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*domain.Completion, error)
	calls     [][]domain.Message
	toolsSeen [][]domain.ToolDefinition
}

func (m *scriptedModel) ModelName() string { return "scripted" }

func (m *scriptedModel) Complete(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*domain.Completion, error) {
	m.mu.Lock()
	i := len(m.calls)
	m.calls = append(m.calls, append([]domain.Message(nil), messages...))
	m.toolsSeen = append(m.toolsSeen, tools)
	var step func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error)
	if i < len(m.steps) {
		step = m.steps[i]
	} else if len(m.steps) > 0 {
		step = m.steps[len(m.steps)-1]
	}
	m.mu.Unlock()

	if step == nil {
		return &domain.Completion{}, nil
	}
	return step(ctx, messages, tools)
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func reply(text string) func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
	return func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
		return &domain.Completion{Content: text, FinishReason: "stop"}, nil
	}
}

func callTool(name, args string) func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
	return func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
		return &domain.Completion{
			ToolCalls:    []domain.ToolCall{{ID: "call_" + name, Name: name, Arguments: args}},
			FinishReason: "tool_calls",
		}, nil
	}
}

func fail(err error) func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
	return func(context.Context, []domain.Message, []domain.ToolDefinition) (*domain.Completion, error) {
		return nil, err
	}
}

// echoTool returns its arguments, or an error when told to.
type echoTool struct {
	name string
	err  error
}

func (t *echoTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{Name: t.name, Description: "echo", Parameters: json.RawMessage(`{"type":"object"}`)}
}

func (t *echoTool) Call(_ context.Context, args json.RawMessage) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "echo:" + string(args), nil
}

// fakeSource serves a fixed menu or an error.
type fakeSource struct {
	items []domain.MenuDocument
	err   error
	calls int
}

func (f *fakeSource) FetchMenu(context.Context) ([]domain.MenuDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.MenuDocument, len(f.items))
	for i, it := range f.items {
		out[i] = it.Clone()
	}
	return out, nil
}

func sampleMenu() []domain.MenuDocument {
	return []domain.MenuDocument{
		{
			"id": int64(1), "name": "Mango Smoothie", "description": "Fresh mango blended with yogurt",
			"price": int64(850), "isActive": true,
			"categories": []any{map[string]any{"id": int64(2), "name": "Drinks"}, map[string]any{"id": int64(5), "name": "Desserts"}},
		},
		{
			"id": int64(2), "name": "Chicken Kottu", "description": "Chopped roti with chicken curry",
			"price": 1250.5, "categories": []any{map[string]any{"id": int64(3), "name": "Mains"}},
		},
		{
			"id": int64(3), "name": "Lime Tea", "price": int64(300), "categories": []any{},
		},
	}
}
