package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAccumulates(t *testing.T) {
	m := NewMetrics()
	m.BatchCompleted(10, 9, 1, 2*time.Second)
	m.BatchFailed(4 * time.Second)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Batches)
	assert.Equal(t, int64(1), s.FailedBatches)
	assert.Equal(t, int64(10), s.Records)
	assert.Equal(t, int64(9), s.Meshes)
	assert.Equal(t, int64(1), s.RecordFailures)
	assert.Equal(t, 4*time.Second, s.LastBatch)
	assert.Equal(t, 3*time.Second, s.AverageBatch)
}

func TestClockElapsed(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	now := base
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	now = base.Add(1500 * time.Millisecond)
	c.Stop()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())

	now = base.Add(time.Hour)
	c.Update()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
}

func TestNewIdentifier(t *testing.T) {
	a, b := NewIdentifier(), NewIdentifier()
	assert.NotEqual(t, a, b)
	assert.True(t, IsIdentifier(a))
	assert.False(t, IsIdentifier("tree-1"))
}
