package port

import (
	"context"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// Embedder turns text into vectors. Implementations target Azure OpenAI,
// Ollama or any compatible API.
type Embedder interface {
	// EmbeddingModel returns the identifier of the embedding model or deployment.
	EmbeddingModel() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result is aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel produces the next step of a tool-using conversation.
type ChatModel interface {
	// ModelName returns the identifier of the chat model or deployment.
	ModelName() string

	// Complete sends the conversation and the available tools and returns either
	// tool calls or the final text. A nil tools slice disables tool use.
	Complete(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*domain.Completion, error)
}

// AIProvider is a backend serving both embeddings and chat completions.
type AIProvider interface {
	Embedder
	ChatModel
}
