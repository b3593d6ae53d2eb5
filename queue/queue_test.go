package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestQueueProcessesJob(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(10, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop(context.Background())

	var processed int32
	done := make(chan struct{})
	res := q.Enqueue(Job{
		ID:     "job1",
		Source: "test",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			close(done)
			return nil
		},
	})
	if res != Enqueued {
		t.Fatalf("expected enqueue to succeed, got %s", res)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}
}

func TestQueueBounded(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(1, 0, 100*time.Millisecond)
	q.Start(context.Background())
	defer q.Stop(context.Background())

	if res := q.Enqueue(Job{ID: "first", Work: func(context.Context) error { return nil }}); res != Enqueued {
		t.Fatalf("expected first enqueue to succeed, got %s", res)
	}
	if res := q.Enqueue(Job{ID: "drop", Work: func(context.Context) error { return nil }}); res != Full {
		t.Fatalf("expected full queue, got %s", res)
	}
}

func TestQueueCoalescesPendingKey(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(4, 0, time.Second)
	q.Start(context.Background())
	defer q.Stop(context.Background())

	job := Job{ID: "a", Key: "input.xlsx", Work: func(context.Context) error { return nil }}
	if res := q.Enqueue(job); res != Enqueued {
		t.Fatalf("expected enqueue, got %s", res)
	}
	job.ID = "b"
	if res := q.Enqueue(job); res != Coalesced {
		t.Fatalf("expected coalesced, got %s", res)
	}
	if res := q.Enqueue(Job{ID: "c", Key: "other.xlsx", Work: func(context.Context) error { return nil }}); res != Enqueued {
		t.Fatalf("different key should enqueue, got %s", res)
	}
	s := q.Stats()
	if s.Length != 2 || s.Coalesced != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestQueueKeyReleasedOnceRunning(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(4, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	first := q.Enqueue(Job{ID: "a", Key: "k", Work: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	if first != Enqueued {
		t.Fatalf("expected enqueue, got %s", first)
	}
	<-started
	if res := q.Enqueue(Job{ID: "b", Key: "k", Work: func(context.Context) error { return nil }}); res != Enqueued {
		t.Fatalf("key should be free while the first job runs, got %s", res)
	}
	close(release)
}

func TestQueueRecoversPanicAndTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(4, 1, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	errs := make(chan error, 2)
	q.Enqueue(Job{ID: "panic", Work: func(context.Context) error { panic("boom") }, OnFinish: func(err error) { errs <- err }})
	q.Enqueue(Job{ID: "slow", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, OnFinish: func(err error) { errs <- err }})

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err == nil {
				t.Fatalf("expected error from job %d", i)
			}
			if i == 1 && !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected deadline exceeded, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("job %d did not finish", i)
		}
	}
	q.Stop(context.Background())
	if s := q.Stats(); s.Failed != 2 || s.Processed != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if q.Healthy() {
		t.Fatalf("stopped queue should not report healthy")
	}
	if res := q.Enqueue(Job{ID: "late", Work: func(context.Context) error { return nil }}); res != NotRunning {
		t.Fatalf("expected not running, got %s", res)
	}
}

func TestEnqueueWithRetryGivesUpWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(1, 0, time.Second)
	q.Start(context.Background())
	defer q.Stop(context.Background())

	q.Enqueue(Job{ID: "first", Work: func(context.Context) error { return nil }})
	res := q.EnqueueWithRetry(context.Background(), Job{ID: "retry", Work: func(context.Context) error { return nil }}, 120*time.Millisecond, 40*time.Millisecond)
	if res != Full {
		t.Fatalf("expected full after retries, got %s", res)
	}
}
