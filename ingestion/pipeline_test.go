package ingestion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/folio/ai/mock"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "text_embeddings"

var fiveChunks = strings.Join([]string{
	"ACT I. Scene I. Elsinore. A platform before the castle.",
	"Who's there? Nay, answer me. Stand and unfold yourself.",
	"Something is rotten in the state of Denmark.",
	"Neither a borrower nor a lender be.",
	"The rest is silence.",
}, "\n\n\n\n")

// failingStore fails Put for texts containing failOn.
type failingStore struct {
	storage.VectorStore
	failOn string
	calls  atomic.Int32
}

func (s *failingStore) Put(ctx context.Context, collection string, record *core.Record) error {
	if strings.Contains(record.Text, s.failOn) {
		s.calls.Add(1)
		return storage.ErrStoreWrite
	}
	return s.VectorStore.Put(ctx, collection, record)
}

func newTestStore(t *testing.T) storage.VectorStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestPipeline(t *testing.T, store storage.VectorStore, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetry(2, time.Millisecond), WithPoolSize(3)}, opts...)
	p, err := NewPipeline(store, embedder, testCollection, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_RequiredArguments(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewPipeline(nil, embedder, testCollection)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(store, nil, testCollection)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(store, embedder, "")
	assert.ErrorIs(t, err, ErrCollectionRequired)

	_, err = NewPipeline(store, embedder, testCollection, WithRetry(0, 0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestPipeline_IngestText(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	p := newTestPipeline(t, store, embedder)

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Stored)
	assert.Empty(t, report.Failures)
	assert.False(t, report.NothingStored())

	info, err := store.Info(context.Background(), testCollection)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Count)
	assert.Equal(t, mock.DefaultModel, info.Schema.Model)
	assert.Equal(t, mock.DefaultDimension, info.Schema.Dimension)
}

func TestPipeline_EmbedFailureIsIsolated(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	var attempts atomic.Int32
	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if strings.HasPrefix(text, "Something is rotten") {
			attempts.Add(1)
			return nil, errors.New("rate limited")
		}
		return []float32{1, float32(len(text)), 0}, nil
	})
	p := newTestPipeline(t, store, embedder)

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Stored)
	require.Len(t, report.Failures, 1)

	failure := report.Failures[0]
	assert.Equal(t, 2, failure.Index)
	assert.Equal(t, StageEmbed, failure.Stage)
	assert.Equal(t, core.IDFromContent("Something is rotten in the state of Denmark."), failure.ChunkID)
	assert.Equal(t, "Something is rotten in the state of Denmar", failure.Prefix)
	assert.Len(t, []rune(failure.Prefix), PrefixLength)
	assert.EqualError(t, failure.Err, "rate limited")
	// Once in the failed batch request, then twice on its own.
	assert.Equal(t, int32(3), attempts.Load())

	info, err := store.Info(context.Background(), testCollection)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Count)
}

func TestPipeline_EmbedsInBatches(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	var batches atomic.Int32
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batches.Add(1)
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = make([]float32, mock.DefaultDimension)
			vectors[i][0] = float32(len(text))
		}
		return vectors, nil
	}
	p := newTestPipeline(t, store, embedder, WithBatchSize(2))

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Stored)
	assert.Empty(t, report.Failures)

	// Batches of 2, 2 and 1; the trailing chunk is embedded on its own.
	assert.Equal(t, int32(2), batches.Load())
	assert.Equal(t, []string{"The rest is silence."}, embedder.Texts())
}

func TestPipeline_BatchSizeOneEmbedsSingly(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch embedding not expected")
	}
	p := newTestPipeline(t, store, embedder, WithBatchSize(0))

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Stored)
	assert.Equal(t, 5, embedder.CallCount())
}

func TestPipeline_BatchFailureFallsBackToSingleChunks(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch too large")
	}
	p := newTestPipeline(t, store, embedder)

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Stored)
	assert.Empty(t, report.Failures)
	assert.Len(t, embedder.Texts(), 5)
}

func TestPipeline_BatchSizeMismatchFallsBack(t *testing.T) {
	store := newTestStore(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	}
	p := newTestPipeline(t, store, embedder)

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Stored)
	assert.Len(t, embedder.Texts(), 5)
}

func TestPipeline_StoreFailureIsIsolated(t *testing.T) {
	store := &failingStore{VectorStore: newTestStore(t), failOn: "borrower"}
	p := newTestPipeline(t, store, mock.NewMockEmbedder())

	report, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Stored)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageStore, report.Failures[0].Stage)
	assert.ErrorIs(t, report.Failures[0].Err, storage.ErrStoreWrite)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestPipeline_SchemaMismatchIsNotRetried(t *testing.T) {
	store := newTestStore(t)
	_, err := store.EnsureCollection(context.Background(), &core.CollectionSchema{
		Name: testCollection, Model: mock.DefaultModel, Dimension: 2,
	})
	require.NoError(t, err)

	p := newTestPipeline(t, store, mock.NewMockEmbedder(), WithRetry(5, time.Second))

	start := time.Now()
	report, err := p.IngestText(context.Background(), "one chunk")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, storage.ErrSchemaMismatch)
	assert.True(t, report.NothingStored())
}

func TestPipeline_EmptyText(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), mock.NewMockEmbedder())

	report, err := p.IngestText(context.Background(), "  \n\n\n\n  ")
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.Stored)
	assert.False(t, report.NothingStored())
}

func TestPipeline_CancelledContext(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := newTestPipeline(t, newTestStore(t), embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.IngestText(ctx, fiveChunks)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Zero(t, report.Stored)
	require.Len(t, report.Failures, 5)
	for i, f := range report.Failures {
		assert.Equal(t, i, f.Index)
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
	assert.Zero(t, embedder.CallCount())
}

func TestPipeline_Ingest(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store, mock.NewMockEmbedder())

	report, err := p.Ingest(context.Background(), &TextSource{Name: "hamlet", Text: fiveChunks})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Stored)
}

func TestPipeline_IngestFetchFailure(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), mock.NewMockEmbedder())

	report, err := p.Ingest(context.Background(), &FileSource{Path: "/nonexistent/works.txt"})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Nil(t, report)
}

func TestPipeline_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPipeline(t, newTestStore(t), mock.NewMockEmbedder(), WithProgress(&buf, 1))

	_, err := p.IngestText(context.Background(), fiveChunks)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Progress: 5/5 (100.0%) - 0 failed")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
