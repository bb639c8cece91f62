package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Records receive IDs from store sequences; chunks use content hashes.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is a trimmed, non-empty span of source text used as the retrieval unit.
type Chunk struct {
	ID    ID  // Content hash of Text
	Index int // Position in the source text; informational only
	Text  string
}

// NewChunk builds a chunk and derives its content ID.
func NewChunk(index int, text string) Chunk {
	return Chunk{
		ID:    IDFromContent(text),
		Index: index,
		Text:  text,
	}
}

// Prefix returns at most n runes of the chunk text, for reporting.
func (c Chunk) Prefix(n int) string {
	return TextPrefix(c.Text, n)
}

// TextPrefix returns at most n runes of text.
func TextPrefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// Record is a persisted (text, embedding) pair in a named collection.
// Records are immutable once stored.
type Record struct {
	ID         ID        // Assigned by the store
	Text       string    // Chunk text
	Vector     []float32 // Embedding of Text
	Model      string    // Embedding model that produced Vector
	InsertedAt time.Time // When the record was inserted into the store
}

// CollectionSchema pins the embedding model and dimension of a collection.
// Every write to the collection is validated against it.
type CollectionSchema struct {
	Name      string
	Model     string
	Dimension int
	CreatedAt time.Time
}

// Compatible reports whether an embedding from model with the given
// dimension may be stored in the collection.
func (s *CollectionSchema) Compatible(model string, dimension int) bool {
	return s.Model == model && s.Dimension == dimension
}

// CollectionInfo summarizes a collection for diagnostics.
type CollectionInfo struct {
	Schema *CollectionSchema // nil if the collection has never been written
	Count  int
}

// SearchResult represents a stored record matched by similarity search.
type SearchResult struct {
	Record *Record
	Score  float32
}
