// Package chunker splits raw source text into retrieval chunks.
//
// A chunk boundary is a run of three or more line breaks, that is, two or
// more fully blank lines between passages. Each span is trimmed and empty
// spans are dropped.
package chunker

import (
	"regexp"
	"strings"

	"github.com/poiesic/folio/core"
)

// Separator is inserted between chunks by Join. It is the shortest run
// that Split treats as a boundary.
const Separator = "\n\n\n"

var boundary = regexp.MustCompile(`(?:\r?\n){3,}`)

// Split divides rawText into trimmed, non-empty chunks in source order.
// Text without a boundary yields a single chunk; all-whitespace text yields none.
func Split(rawText string) []core.Chunk {
	spans := boundary.Split(rawText, -1)

	var chunks []core.Chunk
	for _, span := range spans {
		text := strings.TrimSpace(span)
		if text == "" {
			continue
		}
		chunks = append(chunks, core.NewChunk(len(chunks), text))
	}
	return chunks
}

// Texts returns the text of each chunk.
func Texts(chunks []core.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// Join reassembles chunks into text that Split maps back to the same chunks.
func Join(chunks []core.Chunk) string {
	return strings.Join(Texts(chunks), Separator)
}
