package storage

import (
	"testing"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalRecord(t *testing.T) {
	now := time.Now().UTC()
	record := &core.Record{
		ID:         core.ID(7),
		Text:       "Now is the winter of our discontent\nMade glorious summer by this sun of York",
		Vector:     []float32{0.25, -1.5, 3.75, 0},
		Model:      "text-embedding-3-small",
		InsertedAt: now,
	}

	decoded, err := UnmarshalRecord(MarshalRecord(record))
	require.NoError(t, err)

	assert.Equal(t, record.ID, decoded.ID)
	assert.Equal(t, record.Text, decoded.Text)
	assert.Equal(t, record.Vector, decoded.Vector)
	assert.Equal(t, record.Model, decoded.Model)
	assert.True(t, record.InsertedAt.Equal(decoded.InsertedAt))
}

func TestUnmarshalRecord_Truncated(t *testing.T) {
	data := MarshalRecord(&core.Record{
		ID:     1,
		Text:   "Exit, pursued by a bear.",
		Vector: []float32{1, 2, 3},
		Model:  "m",
	})

	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalRecord(data[:cut])
		assert.ErrorIs(t, err, ErrSerializationFailed, "cut at %d", cut)
	}
}

func TestMarshalUnmarshalSchema(t *testing.T) {
	schema := &core.CollectionSchema{
		Name:      "text_embeddings",
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		CreatedAt: time.Now().UTC(),
	}

	decoded, err := UnmarshalSchema(MarshalSchema(schema))
	require.NoError(t, err)
	assert.Equal(t, schema.Name, decoded.Name)
	assert.Equal(t, schema.Model, decoded.Model)
	assert.Equal(t, schema.Dimension, decoded.Dimension)
	assert.True(t, schema.CreatedAt.Equal(decoded.CreatedAt))

	_, err = UnmarshalSchema(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
