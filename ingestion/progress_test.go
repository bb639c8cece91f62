package ingestion

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 4, 2)
	p.Start()

	p.Done(true)
	assert.Empty(t, buf.String())

	p.Done(false)
	assert.Contains(t, buf.String(), "Progress: 2/4 (50.0%) - 1 failed")

	p.Done(true)
	p.Done(true)
	p.Finish()
	assert.Contains(t, buf.String(), "Progress: 4/4 (100.0%) - 1 failed")
	assert.Greater(t, p.Elapsed().Nanoseconds(), int64(0))
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 4, 1)

	p.Done(true)
	p.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, p.Elapsed())
}
