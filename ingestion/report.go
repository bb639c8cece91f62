package ingestion

import (
	"time"

	"github.com/poiesic/folio/core"
)

// PrefixLength is the number of characters of chunk text kept in failure reports.
const PrefixLength = 42

// Stage names the step at which a chunk was lost.
type Stage string

const (
	StageEmbed Stage = "embed"
	StageStore Stage = "store"
)

// ChunkFailure describes a chunk that was not stored.
type ChunkFailure struct {
	Index   int
	ChunkID core.ID
	Prefix  string
	Stage   Stage
	Err     error
}

// Report summarizes an ingestion run.
type Report struct {
	Total    int
	Stored   int
	Failures []ChunkFailure // ordered by chunk index
	Elapsed  time.Duration
}

// Failed returns the number of chunks that were not stored.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// NothingStored reports whether a non-empty run stored no chunks at all.
func (r *Report) NothingStored() bool {
	return r.Total > 0 && r.Stored == 0
}
