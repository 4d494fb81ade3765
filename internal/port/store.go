package port

import (
	"context"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// MenuSource fetches the full menu collection from the upstream menu service.
type MenuSource interface {
	FetchMenu(ctx context.Context) ([]domain.MenuDocument, error)
}

// MenuStore persists menu documents keyed by their external id.
type MenuStore interface {
	// UpsertMenuItems inserts or replaces the given fields of each document,
	// keyed by its "id". Documents missing from the call are left untouched.
	UpsertMenuItems(ctx context.Context, docs []domain.MenuDocument) (int, error)

	// ListMenuItems returns every stored document.
	ListMenuItems(ctx context.Context) ([]domain.MenuDocument, error)
}
