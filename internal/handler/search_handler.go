package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// maxSearchResults caps k for direct retrieval.
const maxSearchResults = 20

// Searcher runs similarity search over the published menu index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// SearchHandler exposes the retriever without going through the agent.
type SearchHandler struct {
	searcher Searcher
	topK     int
}

// NewSearchHandler creates a search handler returning topK results by default.
func NewSearchHandler(searcher Searcher, topK int) *SearchHandler {
	return &SearchHandler{searcher: searcher, topK: topK}
}

// Register sets up search routes.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("/search", h.Search)
}

// Search returns the menu passages nearest to a query.
func (h *SearchHandler) Search(c fiber.Ctx) error {
	var body struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := c.Bind().JSON(&body); err != nil || strings.TrimSpace(body.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing query"})
	}
	k := body.K
	if k <= 0 {
		k = h.topK
	}
	k = min(k, maxSearchResults)

	chunks, err := h.searcher.Search(c.Context(), body.Query, k)
	if errors.Is(err, port.ErrIndexUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "menu index is not ready"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	sources := make([]fiber.Map, len(chunks))
	for i, chunk := range chunks {
		sources[i] = fiber.Map{
			"content":        chunk.Content,
			"similarity":     chunk.Similarity,
			"document_index": chunk.DocumentIndex,
			"metadata":       chunk.Metadata,
		}
	}

	return c.JSON(fiber.Map{
		"query":   body.Query,
		"sources": sources,
	})
}
