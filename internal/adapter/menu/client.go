package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// Client fetches the menu collection from the upstream menu service.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a menu client for the given endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchMenu issues a GET and decodes the body as a JSON array of objects.
// Numbers are kept exact: integral values become int64, others float64.
func (c *Client) FetchMenu(ctx context.Context) ([]domain.MenuDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("menu: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("menu: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("menu: %w: %d %s", port.ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("menu: decode: %w", err)
	}

	docs := make([]domain.MenuDocument, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		docs = append(docs, domain.MenuDocument(normalize(item).(map[string]any)))
	}
	return docs, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	default:
		return v
	}
}
