package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/restaurant-chatbot/internal/service"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// ErrMissingChatbot is returned when the server has nothing to expose.
var ErrMissingChatbot = errors.New("mcp: chatbot is required")

// Chatbot is the part of the service the MCP tools expose.
type Chatbot interface {
	Ask(ctx context.Context, sessionID, question string) (string, error)
	Search(ctx context.Context, query string, k int) (string, error)
	Refresh(ctx context.Context) error
}

// Server implements the Model Context Protocol (MCP) server.
// It lets external agents query the restaurant assistant.
type Server struct {
	chatbot Chatbot
	server  *mcp.Server
	port    string
}

// NewServer creates a new MCP server.
func NewServer(name string, chatbot Chatbot, port string) (*Server, error) {
	if chatbot == nil {
		return nil, ErrMissingChatbot
	}

	s := &Server{
		chatbot: chatbot,
		server:  mcp.NewServer(&mcp.Implementation{Name: name, Version: Version}, nil),
		port:    port,
	}
	s.registerTools()
	return s, nil
}

// Handler returns the streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Start serves MCP over HTTP on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("MCP server shutdown", "error", err)
		}
	}()

	slog.Info("MCP server starting", "port", s.port)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}

// SearchMenuInput is the input schema for search_menu.
type SearchMenuInput struct {
	Query string `json:"query" jsonschema:"what to look for in the menu"`
	Limit int    `json:"limit,omitempty" jsonschema:"number of menu passages to return (default 5)"`
}

// AskInput is the input schema for ask_assistant.
type AskInput struct {
	Question  string `json:"question" jsonschema:"question for the restaurant assistant"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue"`
}

// TextOutput carries a plain text result.
type TextOutput struct {
	Text string `json:"text"`
}

// SyncOutput reports a refresh cycle.
type SyncOutput struct {
	Status string `json:"status"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_menu",
		Description: "Search the restaurant menu for items, descriptions and prices",
	}, s.handleSearchMenu)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_assistant",
		Description: "Ask the restaurant assistant a question, with conversation memory per session",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_menu",
		Description: "Synchronize the menu from the menu service and rebuild the search index",
	}, s.handleSync)
}

func (s *Server) handleSearchMenu(ctx context.Context, _ *mcp.CallToolRequest, input SearchMenuInput) (*mcp.CallToolResult, TextOutput, error) {
	if input.Query == "" {
		return nil, TextOutput{}, errors.New("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = service.DefaultTopK
	}

	text, err := s.chatbot.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, TextOutput{}, err
	}
	return nil, TextOutput{Text: text}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, TextOutput, error) {
	if input.Question == "" {
		return nil, TextOutput{}, errors.New("question is required")
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = service.DefaultSessionID
	}

	answer, err := s.chatbot.Ask(ctx, sessionID, input.Question)
	if err != nil {
		return nil, TextOutput{}, err
	}
	return nil, TextOutput{Text: answer}, nil
}

func (s *Server) handleSync(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, SyncOutput, error) {
	if err := s.chatbot.Refresh(ctx); err != nil {
		return nil, SyncOutput{}, err
	}
	return nil, SyncOutput{Status: "synchronized"}, nil
}
