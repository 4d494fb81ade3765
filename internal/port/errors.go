package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrMissingConfig    = errors.New("missing required configuration")
	ErrUpstreamStatus   = errors.New("upstream returned non-success status")
	ErrEmptyMenu        = errors.New("upstream returned no menu items")
	ErrNoDocuments      = errors.New("no documents to index")
	ErrSyncFailed       = errors.New("menu synchronization failed")
	ErrIndexUnavailable = errors.New("knowledge base unavailable")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)
