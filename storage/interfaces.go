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

package storage

import (
	"context"

	"github.com/poiesic/folio/core"
)

// VectorStore persists embedded records in named collections and answers
// nearest-neighbour queries by cosine similarity.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the collection schema if absent.
	// If a schema already exists its model and dimension must match,
	// otherwise ErrSchemaMismatch is returned. Returns the stored schema.
	EnsureCollection(ctx context.Context, schema *core.CollectionSchema) (*core.CollectionSchema, error)

	// Put inserts a single record atomically and assigns record.ID.
	// The first write to a collection creates its schema from the record's
	// model and vector length; later writes must match it.
	// Invalid records fail with core.ErrInvalidInput. Other failures wrap ErrStoreWrite.
	Put(ctx context.Context, collection string, record *core.Record) error

	// QueryTopN returns up to n records ordered by descending cosine similarity
	// to vector. Ties are broken by ascending record ID.
	// A missing or empty collection yields an empty result.
	// n <= 0 or a vector whose length differs from the schema dimension
	// fails with core.ErrInvalidArgument.
	QueryTopN(ctx context.Context, collection string, vector []float32, n int) ([]*core.SearchResult, error)

	// Info returns the collection schema and record count.
	// A collection that has never been written has a nil Schema and zero Count.
	Info(ctx context.Context, collection string) (*core.CollectionInfo, error)

	// Close releases resources held by the store.
	Close() error
}
