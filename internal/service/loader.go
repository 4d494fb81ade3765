package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// Placeholders used when a menu document lacks a field.
const (
	unknownItemName     = "Unknown Item"
	missingDescription  = "No description available."
	missingPrice        = "Price not specified"
	defaultCategoryName = "General"
)

// Loader projects stored menu documents into indexable text documents.
type Loader struct {
	store port.MenuStore
}

// NewLoader creates a loader reading from store.
func NewLoader(store port.MenuStore) *Loader {
	return &Loader{store: store}
}

// LoadAll reads every stored menu document and renders it.
func (l *Loader) LoadAll(ctx context.Context) ([]domain.Document, error) {
	items, err := l.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menu documents: %w", err)
	}
	return BuildDocuments(items), nil
}

// BuildDocuments renders each menu document as a fixed-format text block plus
// the subset of its fields holding primitive values.
func BuildDocuments(items []domain.MenuDocument) []domain.Document {
	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, domain.Document{
			Text:     renderMenuText(item),
			Metadata: primitiveMetadata(item),
		})
	}
	return docs
}

func renderMenuText(item domain.MenuDocument) string {
	name := unknownItemName
	if v, ok := item[domain.FieldName]; ok && v != nil {
		name = formatValue(v)
	}

	description := formatValue(item[domain.FieldDescription])
	if description == "" {
		description = missingDescription
	}

	price := missingPrice
	if v, ok := item[domain.FieldPrice]; ok && v != nil {
		price = formatValue(v)
	}

	category := formatValue(item[domain.FieldCategoryList])
	if category == "" {
		category = formatValue(item[domain.FieldCategory])
	}
	if category == "" {
		category = defaultCategoryName
	}

	return fmt.Sprintf("Name: %s\nDescription: %s\nPrice: %s\nCategory: %s", name, description, price, category)
}

func primitiveMetadata(item domain.MenuDocument) map[string]any {
	meta := make(map[string]any, len(item))
	for k, v := range item {
		if k == domain.FieldInternalID {
			continue
		}
		switch v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			meta[k] = v
		}
	}
	return meta
}

// formatValue renders a scalar the way it appears in the upstream JSON; nil renders as "".
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
