package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_ShortText(t *testing.T) {
	s := NewSplitter()
	text := "Name: Lime Tea\nDescription: No description available.\nPrice: 300\nCategory: General"
	assert.Equal(t, []string{text}, s.Split(text))
}

func TestSplitter_Empty(t *testing.T) {
	assert.Empty(t, NewSplitter().Split(""))
	assert.Empty(t, NewSplitter().Split("  \n\n  "))
}

func TestSplitter_RespectsChunkSize(t *testing.T) {
	description := strings.Repeat("Slow cooked Jaffna style crab curry with roasted spices and coconut milk. ", 20)
	text := "Name: Crab Curry\nDescription: " + description + "\nPrice: 4500\nCategory: Mains"

	chunks := NewSplitter(WithChunkSize(300), WithOverlap(30)).Split(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
		assert.Equal(t, strings.TrimSpace(c), c)
		assert.NotEmpty(t, c)
	}
	assert.True(t, strings.HasPrefix(chunks[0], "Name: Crab Curry"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "Category: Mains"))
}

func TestSplitter_Overlap(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, "word")
	}
	chunks := NewSplitter(WithChunkSize(50), WithOverlap(10)).Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 1)

	// consecutive chunks share their boundary words
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		assert.True(t, strings.HasPrefix(chunks[i], prev[len(prev)-1]))
	}
}

func TestSplitter_HardCutsLongWords(t *testing.T) {
	long := strings.Repeat("x", 700)
	chunks := NewSplitter(WithChunkSize(300), WithOverlap(30)).Split(long)
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 300)
	}
}

func TestSplitter_CountsRunes(t *testing.T) {
	text := strings.Repeat("කොත්තු ", 80) // Sinhala text, multi-byte runes
	chunks := NewSplitter(WithChunkSize(100), WithOverlap(10)).Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		assert.True(t, utf8.ValidString(c))
	}
}

func TestNewSplitter_OverlapClamped(t *testing.T) {
	s := NewSplitter(WithChunkSize(40), WithOverlap(40))
	assert.Equal(t, 10, s.overlap)

	s = NewSplitter(WithChunkSize(-1), WithOverlap(-5))
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.overlap)
}
