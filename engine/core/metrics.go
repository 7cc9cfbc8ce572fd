package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// MetricsSnapshot is a copy of the pipeline counters.
type MetricsSnapshot struct {
	Batches        int64
	FailedBatches  int64
	Records        int64
	Meshes         int64
	RecordFailures int64
	LastBatch      time.Duration
	AverageBatch   time.Duration
}

// Metrics accumulates pipeline counters. The zero value is ready to use.
type Metrics struct {
	mu          sync.Mutex
	snap        MetricsSnapshot
	batchTimes  [AVG_COUNT]time.Duration
	batchCursor uint8
	batchFilled uint8
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// BatchCompleted records one finished batch.
func (m *Metrics) BatchCompleted(records, meshes, failures int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Batches++
	m.snap.Records += int64(records)
	m.snap.Meshes += int64(meshes)
	m.snap.RecordFailures += int64(failures)
	m.trackDuration(elapsed)
}

// BatchFailed records a batch aborted before any record was converted.
func (m *Metrics) BatchFailed(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Batches++
	m.snap.FailedBatches++
	m.trackDuration(elapsed)
}

func (m *Metrics) trackDuration(elapsed time.Duration) {
	m.snap.LastBatch = elapsed
	m.batchTimes[m.batchCursor] = elapsed
	m.batchCursor = (m.batchCursor + 1) % AVG_COUNT
	if m.batchFilled < AVG_COUNT {
		m.batchFilled++
	}
	var total time.Duration
	for i := uint8(0); i < m.batchFilled; i++ {
		total += m.batchTimes[i]
	}
	m.snap.AverageBatch = total / time.Duration(m.batchFilled)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
