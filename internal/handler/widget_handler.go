package handler

import (
	"github.com/gofiber/fiber/v3"
)

// WidgetHandler serves the embeddable chat widget.
type WidgetHandler struct {
	html []byte
	js   []byte
}

// NewWidgetHandler creates a widget handler from the embedded assets.
func NewWidgetHandler(html, js []byte) *WidgetHandler {
	return &WidgetHandler{html: html, js: js}
}

// Register sets up widget routes.
func (h *WidgetHandler) Register(router fiber.Router) {
	router.Get("/widget", h.Widget)
	router.Get("/embed.js", h.EmbedJS)
}

// Widget returns the chat UI page.
func (h *WidgetHandler) Widget(c fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(h.html)
}

// EmbedJS returns the script host pages include to load the widget.
func (h *WidgetHandler) EmbedJS(c fiber.Ctx) error {
	c.Type("js", "utf-8")
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.Send(h.js)
}
