package port

import (
	"context"
	"encoding/json"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// Tool is a capability the agent can invoke while reasoning.
type Tool interface {
	Definition() domain.ToolDefinition

	// Call runs the tool with the JSON arguments produced by the model.
	Call(ctx context.Context, arguments json.RawMessage) (string, error)
}
