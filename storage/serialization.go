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
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/folio/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalRecord serializes a Record to bytes.
// Layout: id, text, vector length, vector components, model, inserted-at (unix nanos).
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, recordSize(record))
	n := varint.Uint64.Marshal(uint64(record.ID), buf)
	n += ord.String.Marshal(record.Text, buf[n:])
	n += varint.Uint64.Marshal(uint64(len(record.Vector)), buf[n:])
	for _, v := range record.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	n += ord.String.Marshal(record.Model, buf[n:])
	varint.Int64.Marshal(record.InsertedAt.UnixNano(), buf[n:])
	return buf
}

func recordSize(record *core.Record) int {
	size := varint.Uint64.Size(uint64(record.ID))
	size += ord.String.Size(record.Text)
	size += varint.Uint64.Size(uint64(len(record.Vector)))
	for _, v := range record.Vector {
		size += raw.Float32.Size(v)
	}
	size += ord.String.Size(record.Model)
	size += varint.Int64.Size(record.InsertedAt.UnixNano())
	return size
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	var (
		record core.Record
		n      int
	)

	id, m, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record id: %w", ErrSerializationFailed, err)
	}
	record.ID = core.ID(id)
	n += m

	if record.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: record text: %w", ErrSerializationFailed, err)
	}
	n += m

	length, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	n += m
	if length > uint64(len(data)-n)/4 {
		return nil, fmt.Errorf("%w: vector length %d exceeds data", ErrSerializationFailed, length)
	}

	record.Vector = make([]float32, length)
	for i := range record.Vector {
		if record.Vector[i], m, err = raw.Float32.Unmarshal(data[n:]); err != nil {
			return nil, fmt.Errorf("%w: vector component %d: %w", ErrSerializationFailed, i, err)
		}
		n += m
	}

	if record.Model, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: record model: %w", ErrSerializationFailed, err)
	}
	n += m

	nanos, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: inserted at: %w", ErrSerializationFailed, err)
	}
	record.InsertedAt = time.Unix(0, nanos).UTC()

	return &record, nil
}

// MarshalSchema serializes a CollectionSchema to bytes.
func MarshalSchema(schema *core.CollectionSchema) []byte {
	created := schema.CreatedAt.UnixNano()
	size := ord.String.Size(schema.Name) +
		ord.String.Size(schema.Model) +
		varint.Int64.Size(int64(schema.Dimension)) +
		varint.Int64.Size(created)

	buf := make([]byte, size)
	n := ord.String.Marshal(schema.Name, buf)
	n += ord.String.Marshal(schema.Model, buf[n:])
	n += varint.Int64.Marshal(int64(schema.Dimension), buf[n:])
	varint.Int64.Marshal(created, buf[n:])
	return buf
}

// UnmarshalSchema deserializes a CollectionSchema from bytes.
func UnmarshalSchema(data []byte) (*core.CollectionSchema, error) {
	var (
		schema core.CollectionSchema
		n, m   int
		err    error
	)

	if schema.Name, m, err = ord.String.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: schema name: %w", ErrSerializationFailed, err)
	}
	n += m

	if schema.Model, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: schema model: %w", ErrSerializationFailed, err)
	}
	n += m

	dim, m, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: schema dimension: %w", ErrSerializationFailed, err)
	}
	schema.Dimension = int(dim)
	n += m

	created, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: schema created at: %w", ErrSerializationFailed, err)
	}
	schema.CreatedAt = time.Unix(0, created).UTC()

	return &schema, nil
}
