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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidInput indicates malformed caller input, such as empty text.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument indicates a contract violation by the caller,
	// such as a non-positive result count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyContent indicates the text of a chunk or record is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrZeroVector indicates an embedding with no direction, which has no cosine similarity.
	ErrZeroVector = errors.New("embedding vector cannot be all zeros")

	// ErrEmptyModel indicates a record does not name its embedding model.
	ErrEmptyModel = errors.New("embedding model cannot be empty")

	// ErrDimensionMismatch indicates vectors of different lengths were compared or stored together.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
