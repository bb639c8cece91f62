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

// Package storage provides the vector store abstraction for folio.
//
// This package defines the VectorStore interface that decouples persistence
// from ingestion and retrieval. Two backends implement it: storage/badger
// (embedded, the default) and storage/postgres (pgvector over the Postgres
// wire protocol).
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.VectorStore interface to keep
// callers independent of a particular backend:
//
//	store, err := badger.NewStore("/path/to/db")  // returns storage.VectorStore
//
// # Collections
//
// Records live in named collections. Each collection carries a schema
// recording the embedding model and vector dimension. The first write creates
// it; later writes and queries are validated against it so that vectors from
// different models never mix.
//
// # Usage
//
//	store, err := badger.NewStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Put(ctx, "text_embeddings", &core.Record{Text: text, Vector: vec, Model: model})
//	results, err := store.QueryTopN(ctx, "text_embeddings", query, 3)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
