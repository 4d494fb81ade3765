package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// Chatbot ties synchronization, indexing and the agent together.
type Chatbot struct {
	sync   *SyncService
	loader *Loader
	kb     *KnowledgeBase
	agent  *Agent

	refreshMu sync.Mutex // serializes sync + rebuild

	statusMu sync.RWMutex
	status   RefreshStatus
}

// RefreshStatus describes the most recent refresh attempt.
type RefreshStatus struct {
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// NewChatbot assembles the chatbot.
func NewChatbot(syncService *SyncService, loader *Loader, kb *KnowledgeBase, agent *Agent) *Chatbot {
	return &Chatbot{sync: syncService, loader: loader, kb: kb, agent: agent}
}

// Refresh synchronizes the menu and, if that succeeds, rebuilds the index.
// Concurrent callers wait for each other.
func (c *Chatbot) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	err := c.refresh(ctx)

	c.statusMu.Lock()
	c.status.LastAttempt = time.Now()
	if err != nil {
		c.status.LastError = err.Error()
	} else {
		c.status.LastError = ""
		c.status.LastSuccess = c.status.LastAttempt
	}
	c.statusMu.Unlock()
	return err
}

func (c *Chatbot) refresh(ctx context.Context) error {
	if !c.sync.Sync(ctx) {
		return port.ErrSyncFailed
	}

	docs, err := c.loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	if err := c.kb.Rebuild(ctx, docs); err != nil {
		if errors.Is(err, port.ErrNoDocuments) {
			slog.Warn("document store is empty after sync")
		}
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// Ask answers a question within a session.
func (c *Chatbot) Ask(ctx context.Context, sessionID, question string) (string, error) {
	return c.agent.Answer(ctx, sessionID, question)
}

// Search exposes the knowledge base for direct retrieval.
func (c *Chatbot) Search(ctx context.Context, query string, k int) (string, error) {
	if k <= 0 {
		return c.kb.Retrieve(ctx, query)
	}
	results, err := c.kb.Search(ctx, query, k)
	if errors.Is(err, port.ErrIndexUnavailable) {
		return UnavailableMessage, nil
	}
	if err != nil {
		return "", err
	}
	return joinChunks(results), nil
}

// Ready reports whether the knowledge base has been built.
func (c *Chatbot) Ready() bool {
	return c.kb.Ready()
}

// Status reports the last refresh and the published index.
func (c *Chatbot) Status() (RefreshStatus, IndexStatus) {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status, c.kb.Status()
}
