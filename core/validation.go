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

import (
	"fmt"
	"strings"
)

// ValidateRecord validates a Record before it is written.
//
// Validation rules:
//   - Text must not be empty or whitespace
//   - Vector must not be empty or all zeros
//   - Model must not be empty
//
// NOT validated (populated by the store):
//   - ID
//   - InsertedAt
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: %w: record is nil", ErrInvalidInput, ErrInvalidRecord)
	}

	if strings.TrimSpace(record.Text) == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalidInput, ErrInvalidRecord, ErrEmptyContent)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w: %w", ErrInvalidInput, ErrInvalidRecord, ErrEmptyVector)
	}

	if isZeroVector(record.Vector) {
		return fmt.Errorf("%w: %w: %w", ErrInvalidInput, ErrInvalidRecord, ErrZeroVector)
	}

	if record.Model == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalidInput, ErrInvalidRecord, ErrEmptyModel)
	}

	return nil
}

// ValidateText rejects empty or whitespace-only text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyContent)
	}
	return nil
}

// ValidateTopN rejects non-positive result counts.
func ValidateTopN(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: result count must be positive, got %d", ErrInvalidArgument, n)
	}
	return nil
}

// ValidateQueryVector checks a query vector against the collection schema.
// A nil schema (collection never written) accepts any non-empty vector.
func ValidateQueryVector(schema *CollectionSchema, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyVector)
	}
	if schema != nil && schema.Dimension != len(vector) {
		return fmt.Errorf("%w: %w: collection %q expects %d, got %d",
			ErrInvalidArgument, ErrDimensionMismatch, schema.Name, schema.Dimension, len(vector))
	}
	return nil
}

func isZeroVector(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
