package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job encapsulates a unit of work processed by the worker pool.
type Job struct {
	ID     string
	Source string
	// Key coalesces submissions: while a job with the same non-empty key is
	// waiting in the queue, further jobs with that key are dropped.
	Key      string
	Work     func(context.Context) error
	OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int    `json:"length"`
	Capacity    int    `json:"capacity"`
	WorkerCount int    `json:"worker_count"`
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
	Coalesced   uint64 `json:"coalesced"`
}

// Result of an enqueue attempt.
type Result int

const (
	Enqueued Result = iota
	Coalesced
	Full
	NotRunning
)

func (r Result) String() string {
	switch r {
	case Enqueued:
		return "enqueued"
	case Coalesced:
		return "coalesced"
	case Full:
		return "full"
	case NotRunning:
		return "not_running"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Queue represents a bounded job queue with a fixed worker pool.
type Queue struct {
	jobs        chan Job
	workerCount int
	timeout     time.Duration
	started     bool
	stopped     bool
	pending     map[string]struct{}
	mu          sync.RWMutex
	pendingMu   sync.Mutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
	coalesced   uint64
}

// New creates a new Queue with the provided capacity, worker count, and per-job timeout.
func New(capacity, workerCount int, timeout time.Duration) *Queue {
	return &Queue{
		jobs:        make(chan Job, capacity),
		workerCount: workerCount,
		timeout:     timeout,
		pending:     make(map[string]struct{}),
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue attempts to queue a job without blocking.
func (q *Queue) Enqueue(j Job) Result {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.stopped {
		zap.L().Warn("enqueue while queue not running", zap.String("job", j.ID))
		return NotRunning
	}
	if j.Key != "" {
		q.pendingMu.Lock()
		if _, dup := q.pending[j.Key]; dup {
			q.pendingMu.Unlock()
			atomic.AddUint64(&q.coalesced, 1)
			zap.L().Debug("job coalesced", zap.String("job", j.ID), zap.String("key", j.Key))
			return Coalesced
		}
		q.pending[j.Key] = struct{}{}
		q.pendingMu.Unlock()
	}
	select {
	case q.jobs <- j:
		return Enqueued
	default:
		q.release(j.Key)
		zap.L().Warn("job queue full, dropping job", zap.String("job", j.ID))
		return Full
	}
}

// EnqueueWithRetry retries a full queue until window elapses.
func (q *Queue) EnqueueWithRetry(ctx context.Context, j Job, window, interval time.Duration) Result {
	deadline := time.Now().Add(window)
	res := q.Enqueue(j)
	for res == Full && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return res
		case <-time.After(interval):
			res = q.Enqueue(j)
		}
	}
	return res
}

// Stop stops accepting new jobs and waits for workers to drain until context is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.stopped = true
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	return Stats{
		Length:      len(q.jobs),
		Capacity:    cap(q.jobs),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
		Coalesced:   atomic.LoadUint64(&q.coalesced),
	}
}

func (q *Queue) release(key string) {
	if key == "" {
		return
	}
	q.pendingMu.Lock()
	delete(q.pending, key)
	q.pendingMu.Unlock()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.release(j.Key)
			q.handleJob(ctx, j)
		}
	}
}

func (q *Queue) handleJob(ctx context.Context, j Job) {
	start := time.Now()
	err := q.run(ctx, j)
	if j.OnFinish != nil {
		j.OnFinish(err)
	}
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
	}
	zap.L().Info("job finished",
		zap.String("job_source", j.Source),
		zap.String("job", j.ID),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Error(err))
}

func (q *Queue) run(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("job panic recovered", zap.String("job", j.ID), zap.Any("panic", r))
			err = fmt.Errorf("job %s panicked: %v", j.ID, r)
		}
	}()
	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return j.Work(jobCtx)
}

// Healthy returns true while the queue accepts jobs.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started && !q.stopped
}
