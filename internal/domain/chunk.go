package domain

// IndexedChunk is a fragment of one Document paired with its embedding.
type IndexedChunk struct {
	ID            string         `json:"id"`
	DocumentIndex int            `json:"document_index"`
	Position      int            `json:"position"`
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Vector        []float32      `json:"-"`
}

// ScoredChunk is returned by similarity search, nearest first.
type ScoredChunk struct {
	IndexedChunk
	Similarity float64 `json:"similarity"`
}
