package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/metrics"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// SyncService mirrors the upstream menu into the document store.
type SyncService struct {
	source  port.MenuSource
	store   port.MenuStore
	metrics *metrics.Metrics
}

// NewSyncService creates a sync service. m may be nil.
func NewSyncService(source port.MenuSource, store port.MenuStore, m *metrics.Metrics) *SyncService {
	return &SyncService{source: source, store: store, metrics: m}
}

// Sync fetches the full menu and upserts every item keyed by its id.
// Failures are logged and reported as false, never returned.
// Stored items missing from the response are left in place.
func (s *SyncService) Sync(ctx context.Context) bool {
	slog.Info("starting menu synchronization")

	items, err := s.source.FetchMenu(ctx)
	if err != nil {
		slog.Error("menu synchronization failed", "error", err)
		s.metrics.ObserveSync(false, 0)
		return false
	}
	if len(items) == 0 {
		slog.Warn("menu synchronization failed", "error", port.ErrEmptyMenu)
		s.metrics.ObserveSync(false, 0)
		return false
	}

	docs := make([]domain.MenuDocument, 0, len(items))
	for _, item := range items {
		if _, ok := item.ID(); !ok {
			slog.Warn("skipping menu item without id", "name", item.Name())
			continue
		}
		doc := item.Clone()
		doc[domain.FieldCategoryList] = CategoryList(item[domain.FieldCategories])
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		slog.Warn("menu synchronization failed", "error", port.ErrEmptyMenu, "received", len(items))
		s.metrics.ObserveSync(false, 0)
		return false
	}

	n, err := s.store.UpsertMenuItems(ctx, docs)
	if err != nil {
		slog.Error("menu synchronization failed", "error", err)
		s.metrics.ObserveSync(false, 0)
		return false
	}

	for _, doc := range docs {
		slog.Debug("synced menu item", "id", doc.Key(), "name", doc.Name())
	}
	slog.Info("menu synchronization complete", "received", len(items), "upserted", n)
	s.metrics.ObserveSync(true, n)
	return true
}

// CategoryList joins the non-empty category names of an item with ", ".
// Anything that is not a list of objects yields "".
func CategoryList(categories any) string {
	list, ok := categories.([]any)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(list))
	for _, c := range list {
		obj, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := obj[domain.FieldName].(string); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
