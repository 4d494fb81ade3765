package service

import (
	"strings"
	"unicode/utf8"
)

// Default splitter settings.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 30
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into overlapping chunks, preferring paragraph, then line,
// then word boundaries and hard-cutting only as a last resort. Sizes are
// counted in runes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets how much trailing context is carried into the next chunk.
func WithOverlap(overlap int) SplitterOption {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewSplitter creates a splitter with the given options.
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Split returns the trimmed, non-empty chunks of text. No chunk is longer
// than the configured chunk size.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good, separator)...)
	}
	return out
}

// merge packs consecutive pieces into chunks up to chunkSize, starting each new
// chunk with up to overlap runes of trailing pieces from the previous one.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks, current []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n+joinCost(current, sepLen) > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total > 0 && total+n+joinCost(current, sepLen) > s.chunkSize) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinCost(current []string, sepLen int) int {
	if len(current) > 0 {
		return sepLen
	}
	return 0
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
