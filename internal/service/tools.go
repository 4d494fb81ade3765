package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// MenuSearchToolName is the name the chat model uses to query the menu.
const MenuSearchToolName = "menu_search"

// Retriever answers a free-text query with relevant menu text.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// MenuSearchTool exposes the knowledge base to the agent.
type MenuSearchTool struct {
	retriever Retriever
}

// NewMenuSearchTool wraps a retriever as an agent tool.
func NewMenuSearchTool(r Retriever) *MenuSearchTool {
	return &MenuSearchTool{retriever: r}
}

// Definition describes the tool to the chat model.
func (t *MenuSearchTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        MenuSearchToolName,
		Description: "Searches the internal menu knowledge base for restaurant items and prices.",
		Parameters: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string",` +
			`"description":"What to look for, e.g. a dish name, ingredient or category"}},"required":["query"]}`),
	}
}

// Call runs a retrieval for the query argument.
func (t *MenuSearchTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrInvalidArguments, err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", port.ErrInvalidArguments)
	}
	return t.retriever.Retrieve(ctx, query)
}
