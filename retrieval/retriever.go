// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// MissingText stands in for a stored record whose text is empty.
const MissingText = "N/A"

// Passage is one retrieved piece of source text.
type Passage struct {
	Text string `json:"text"`
}

// Retriever finds the passages most similar to a query.
type Retriever struct {
	store      storage.VectorStore
	embedder   ai.Embedder
	collection string
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a retriever over collection.
func NewRetriever(store storage.VectorStore, embedder ai.Embedder, collection string, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if collection == "" {
		return nil, ErrCollectionRequired
	}

	r := &Retriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		logger:     slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve embeds query and returns the texts of the topN most similar
// records, most similar first. Scores are not exposed.
func (r *Retriever) Retrieve(ctx context.Context, query string, topN int) ([]Passage, error) {
	results, err := r.Search(ctx, query, topN)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, len(results))
	for i, result := range results {
		text := result.Record.Text
		if strings.TrimSpace(text) == "" {
			text = MissingText
		}
		passages[i] = Passage{Text: text}
	}
	return passages, nil
}

// Search embeds query and returns the topN scored results.
func (r *Retriever) Search(ctx context.Context, query string, topN int) ([]*core.SearchResult, error) {
	if err := core.ValidateText(query); err != nil {
		return nil, err
	}
	if err := core.ValidateTopN(topN); err != nil {
		return nil, err
	}

	r.logger.Debug("retrieving passages", "query", core.TextPrefix(query, 80), "topN", topN)

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("failed to embed query", "err", err)
		return nil, err
	}

	results, err := r.store.QueryTopN(ctx, r.collection, vector, topN)
	if err != nil {
		r.logger.Error("failed to query store", "collection", r.collection, "err", err)
		return nil, err
	}

	r.logger.Debug("retrieved passages", "count", len(results))
	return results, nil
}
