package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics captures operational stats for audit runs and the run queue.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	runsSucceeded   int64
	runsFailed      int64
	recordsIngested int64
	recordsRejected int64
	alarmsRaised    int64
	lastDurationMs  int64
	lastRunUnix     int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength     int       `json:"queue_length"`
	QueueCapacity   int       `json:"queue_capacity"`
	WorkerCount     int       `json:"worker_count"`
	RunsSucceeded   int64     `json:"runs_succeeded"`
	RunsFailed      int64     `json:"runs_failed"`
	RecordsIngested int64     `json:"records_ingested"`
	RecordsRejected int64     `json:"records_rejected"`
	AlarmsRaised    int64     `json:"alarms_raised"`
	LastDurationMs  int64     `json:"last_duration_ms"`
	LastRunAt       time.Time `json:"last_run_at,omitempty"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordRun increments the run counters based on outcome.
func (m *Metrics) RecordRun(err error, duration time.Duration) {
	if err != nil {
		atomic.AddInt64(&m.runsFailed, 1)
	} else {
		atomic.AddInt64(&m.runsSucceeded, 1)
	}
	atomic.StoreInt64(&m.lastDurationMs, duration.Milliseconds())
	atomic.StoreInt64(&m.lastRunUnix, time.Now().Unix())
}

// RecordIngest adds the accepted and quarantined row counts of one input.
func (m *Metrics) RecordIngest(records, rejected int) {
	atomic.AddInt64(&m.recordsIngested, int64(records))
	atomic.AddInt64(&m.recordsRejected, int64(rejected))
}

func (m *Metrics) RecordAlarms(raised int) {
	atomic.AddInt64(&m.alarmsRaised, int64(raised))
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		QueueLength:     int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:   int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:     int(atomic.LoadInt64(&m.workerCount)),
		RunsSucceeded:   atomic.LoadInt64(&m.runsSucceeded),
		RunsFailed:      atomic.LoadInt64(&m.runsFailed),
		RecordsIngested: atomic.LoadInt64(&m.recordsIngested),
		RecordsRejected: atomic.LoadInt64(&m.recordsRejected),
		AlarmsRaised:    atomic.LoadInt64(&m.alarmsRaised),
		LastDurationMs:  atomic.LoadInt64(&m.lastDurationMs),
	}
	if ts := atomic.LoadInt64(&m.lastRunUnix); ts > 0 {
		s.LastRunAt = time.Unix(ts, 0).UTC()
	}
	return s
}
