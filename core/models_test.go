package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short passage", content: "To be or not to be"},
		{name: "empty string", content: ""},
		{name: "multi-line passage", content: "Shall I compare thee to a summer's day?\nThou art more lovely and more temperate."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestNewChunk(t *testing.T) {
	c := NewChunk(3, "Out, damned spot!")
	if c.Index != 3 {
		t.Errorf("Index = %d, want 3", c.Index)
	}
	if c.ID != IDFromContent("Out, damned spot!") {
		t.Errorf("ID not derived from content")
	}
}

func TestTextPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "shorter than limit", text: "Alas", n: 42, want: "Alas"},
		{name: "truncated", text: "Friends, Romans, countrymen", n: 7, want: "Friends"},
		{name: "multibyte runes kept whole", text: "ÆÐÞ and more", n: 3, want: "ÆÐÞ"},
		{name: "zero limit", text: "anything", n: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextPrefix(tt.text, tt.n); got != tt.want {
				t.Errorf("TextPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectionSchema_Compatible(t *testing.T) {
	schema := &CollectionSchema{Name: "text_embeddings", Model: "text-embedding-3-small", Dimension: 1536}

	if !schema.Compatible("text-embedding-3-small", 1536) {
		t.Error("expected identical model and dimension to be compatible")
	}
	if schema.Compatible("text-embedding-3-large", 1536) {
		t.Error("expected different model to be incompatible")
	}
	if schema.Compatible("text-embedding-3-small", 3072) {
		t.Error("expected different dimension to be incompatible")
	}
}
