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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/chunker"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

const (
	defaultMaxAttempts      = 3
	defaultBaseDelay        = 500 * time.Millisecond
	defaultProgressInterval = 25
	defaultBatchSize        = 16
)

// Pipeline embeds chunks of text and stores them in a collection.
// Chunks are processed concurrently on a worker pool; a failing chunk is
// recorded in the Report and never stops its siblings.
type Pipeline struct {
	store            storage.VectorStore
	embedder         ai.Embedder
	collection       string
	pool             *ants.Pool
	batchSize        int
	maxAttempts      int
	baseDelay        time.Duration
	progressWriter   io.Writer
	progressInterval int
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks a worker embeds with one request.
// A batch whose request fails falls back to embedding its chunks one by one.
// Default is 16; 1 disables batching.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// WithRetry sets how often embedding and storing are attempted per chunk
// and the base delay of the exponential backoff between attempts.
// Default is 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithProgress writes a progress line to w every interval chunks.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		if interval < 1 {
			interval = defaultProgressInterval
		}
		p.progressWriter = w
		p.progressInterval = interval
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing into collection.
func NewPipeline(store storage.VectorStore, embedder ai.Embedder, collection string, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if collection == "" {
		return nil, ErrCollectionRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:       store,
		embedder:    embedder,
		collection:  collection,
		pool:        pool,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Ingest fetches the source, splits it into chunks and stores each one.
// A fetch failure is returned as an error wrapping ErrFetchFailed;
// per-chunk failures are reported in the Report.
func (p *Pipeline) Ingest(ctx context.Context, source Source) (*Report, error) {
	p.logger.Info("fetching source", "source", source.String())

	raw, err := source.Fetch(ctx)
	if err != nil {
		p.logger.Error("failed to fetch source", "source", source.String(), "err", err)
		if !errors.Is(err, ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		return nil, err
	}

	return p.IngestText(ctx, raw)
}

// IngestText splits raw text into chunks and stores each one.
func (p *Pipeline) IngestText(ctx context.Context, raw string) (*Report, error) {
	chunks := chunker.Split(raw)
	p.logger.Info("split text into chunks", "chunks", len(chunks), "length", len(raw))
	return p.IngestChunks(ctx, chunks)
}

// IngestChunks embeds and stores the given chunks concurrently.
// It returns once every chunk has either been stored or recorded as a failure.
// Chunks not yet started when ctx is cancelled are recorded as failures.
func (p *Pipeline) IngestChunks(ctx context.Context, chunks []core.Chunk) (*Report, error) {
	start := time.Now()
	report := &Report{Total: len(chunks)}

	var tracker *ProgressTracker
	if p.progressWriter != nil {
		tracker = NewProgressTracker(p.progressWriter, len(chunks), p.progressInterval)
		tracker.Start()
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored atomic.Int64
	)

	fail := func(f ChunkFailure) {
		mu.Lock()
		report.Failures = append(report.Failures, f)
		mu.Unlock()
		if tracker != nil {
			tracker.Done(false)
		}
	}

	done := func(failure *ChunkFailure) {
		if failure != nil {
			fail(*failure)
			return
		}
		stored.Add(1)
		if tracker != nil {
			tracker.Done(true)
		}
	}

	for batch := range slices.Chunk(chunks, p.batchSize) {
		if err := ctx.Err(); err != nil {
			for _, chunk := range batch {
				fail(p.failure(chunk, StageEmbed, err))
			}
			continue
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				for _, chunk := range batch {
					fail(p.failure(chunk, StageEmbed, err))
				}
				return
			}

			p.processBatch(ctx, batch, done)
		})
		if submitErr != nil {
			wg.Done()
			for _, chunk := range batch {
				fail(p.failure(chunk, StageEmbed, submitErr))
			}
		}
	}

	wg.Wait()
	if tracker != nil {
		tracker.Finish()
	}

	slices.SortFunc(report.Failures, func(a, b ChunkFailure) int {
		return a.Index - b.Index
	})
	report.Stored = int(stored.Load())
	report.Elapsed = time.Since(start)

	p.logger.Info("ingestion finished",
		"total", report.Total,
		"stored", report.Stored,
		"failed", report.Failed(),
		"elapsed", report.Elapsed)

	return report, nil
}

// processBatch embeds a batch with one request and stores each chunk.
// If the batch request fails, every chunk is embedded on its own so that
// one bad chunk cannot fail its neighbours. done is called once per chunk.
func (p *Pipeline) processBatch(ctx context.Context, batch []core.Chunk, done func(*ChunkFailure)) {
	if len(batch) == 1 {
		done(p.processChunk(ctx, batch[0]))
		return
	}

	vectors, err := p.embedder.EmbedTexts(ctx, chunker.Texts(batch))
	if err == nil && len(vectors) != len(batch) {
		err = fmt.Errorf("expected %d embeddings, received %d", len(batch), len(vectors))
	}
	if err != nil {
		p.logger.Debug("batch embedding failed, embedding chunks individually",
			"first", batch[0].Index, "size", len(batch), "err", err)
		for _, chunk := range batch {
			done(p.processChunk(ctx, chunk))
		}
		return
	}

	for i, chunk := range batch {
		done(p.storeChunk(ctx, chunk, vectors[i]))
	}
}

// processChunk embeds and stores one chunk. Returns nil on success.
func (p *Pipeline) processChunk(ctx context.Context, chunk core.Chunk) *ChunkFailure {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		v, err := p.embedder.EmbedText(ctx, chunk.Text)
		if err != nil {
			if errors.Is(err, core.ErrInvalidInput) {
				return Permanent(err)
			}
			return err
		}
		vector = v
		return nil
	}, p.maxAttempts, p.baseDelay)
	if err != nil {
		f := p.failure(chunk, StageEmbed, err)
		return &f
	}

	return p.storeChunk(ctx, chunk, vector)
}

// storeChunk writes one embedded chunk. Returns nil on success.
func (p *Pipeline) storeChunk(ctx context.Context, chunk core.Chunk, vector []float32) *ChunkFailure {
	record := &core.Record{
		Text:   chunk.Text,
		Vector: vector,
		Model:  p.embedder.Model(),
	}

	err := RetryWithBackoff(ctx, func() error {
		err := p.store.Put(ctx, p.collection, record)
		if err != nil && isPermanentStoreError(err) {
			return Permanent(err)
		}
		return err
	}, p.maxAttempts, p.baseDelay)
	if err != nil {
		f := p.failure(chunk, StageStore, err)
		return &f
	}

	p.logger.Debug("stored chunk", "index", chunk.Index, "chunk", chunk.ID, "record", record.ID)
	return nil
}

// failure builds and logs a ChunkFailure.
func (p *Pipeline) failure(chunk core.Chunk, stage Stage, err error) ChunkFailure {
	f := ChunkFailure{
		Index:   chunk.Index,
		ChunkID: chunk.ID,
		Prefix:  chunk.Prefix(PrefixLength),
		Stage:   stage,
		Err:     err,
	}
	p.logger.Warn("failed to ingest chunk",
		"index", f.Index,
		"chunk", f.ChunkID,
		"stage", f.Stage,
		"prefix", f.Prefix,
		"err", err)
	return f
}

func isPermanentStoreError(err error) bool {
	return errors.Is(err, core.ErrInvalidInput) ||
		errors.Is(err, core.ErrInvalidArgument) ||
		errors.Is(err, storage.ErrSchemaMismatch) ||
		errors.Is(err, storage.ErrStorageClosed)
}
