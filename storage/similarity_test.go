package storage

import (
	"testing"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestRankTopN(t *testing.T) {
	result := func(id core.ID, score float32) *core.SearchResult {
		return &core.SearchResult{Record: &core.Record{ID: id}, Score: score}
	}

	ranked := RankTopN([]*core.SearchResult{
		result(3, 0.5),
		result(1, 0.9),
		result(4, 0.5),
		result(2, 0.5),
		result(5, 0.1),
	}, 4)

	require.Len(t, ranked, 4)
	ids := []core.ID{ranked[0].Record.ID, ranked[1].Record.ID, ranked[2].Record.ID, ranked[3].Record.ID}
	assert.Equal(t, []core.ID{1, 2, 3, 4}, ids)

	assert.Len(t, RankTopN(nil, 3), 0)
}

func TestValidateCollectionName(t *testing.T) {
	for _, name := range []string{"text_embeddings", "_x", "Works1623"} {
		assert.NoError(t, ValidateCollectionName(name), name)
	}
	for _, name := range []string{"", "1abc", "drop table", `x"; --`, "a-b"} {
		assert.ErrorIs(t, ValidateCollectionName(name), ErrInvalidCollection, name)
	}
}
