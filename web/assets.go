// Package web holds the chat widget served to restaurant websites.
package web

import _ "embed"

// WidgetHTML is the chat UI loaded inside the embedding iframe.
//
//go:embed widget.html
var WidgetHTML []byte

// EmbedJS injects the widget iframe into a host page. It derives the server
// origin from its own script URL.
//
//go:embed embed.js
var EmbedJS []byte
