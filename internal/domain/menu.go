package domain

import "fmt"

// Field names of a stored menu document.
const (
	FieldInternalID   = "_id"
	FieldID           = "id"
	FieldName         = "name"
	FieldDescription  = "description"
	FieldPrice        = "price"
	FieldCategories   = "categories"
	FieldCategoryList = "category_list"
	FieldCategory     = "category"
)

// MenuDocument is the persisted projection of an upstream menu item.
// All upstream fields are mirrored; category_list is derived during sync.
type MenuDocument map[string]any

// ID returns the external identifier of the item.
func (d MenuDocument) ID() (any, bool) {
	v, ok := d[FieldID]
	return v, ok && v != nil
}

// Key returns the external identifier rendered as a string, used for map keys and logs.
func (d MenuDocument) Key() string {
	id, ok := d.ID()
	if !ok {
		return ""
	}
	return fmt.Sprint(id)
}

// Name returns the item name or an empty string.
func (d MenuDocument) Name() string {
	s, _ := d[FieldName].(string)
	return s
}

// Clone returns a shallow copy of the document.
func (d MenuDocument) Clone() MenuDocument {
	out := make(MenuDocument, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Document is the textual rendering of a MenuDocument plus its primitive metadata.
type Document struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}
