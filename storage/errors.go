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
	"errors"
	"fmt"
)

var (
	// ErrStore is the root of every vector store failure.
	ErrStore = errors.New("vector store error")

	// ErrStoreWrite indicates that inserting a record failed.
	ErrStoreWrite = fmt.Errorf("%w: write failed", ErrStore)

	// ErrSchemaMismatch indicates a write or query whose model or dimension
	// differs from the collection schema.
	ErrSchemaMismatch = errors.New("collection schema mismatch")

	// ErrInvalidCollection indicates a collection name that cannot be used as an identifier.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrNotFound indicates that the requested collection was not found.
	ErrNotFound = errors.New("collection not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
