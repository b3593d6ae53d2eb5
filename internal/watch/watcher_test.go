package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"maintenance_audit/config"
	"maintenance_audit/internal/jobs"
	"maintenance_audit/queue"
)

type recorder struct {
	mu       sync.Mutex
	triggers []jobs.Trigger
	notify   chan struct{}
}

func newRecorder() *recorder { return &recorder{notify: make(chan struct{}, 16)} }

func (r *recorder) Enqueue(trig jobs.Trigger) queue.Result {
	r.mu.Lock()
	r.triggers = append(r.triggers, trig)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return queue.Enqueued
}

func TestWatcherEnqueuesOnInputWrite(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "libro.xlsx")
	if err := os.WriteFile(input, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := newRecorder()
	w := New(config.Config{InputPath: input, WatchEnabled: true}, rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(input, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rec.notify:
	case <-time.After(3 * time.Second):
		t.Fatal("no run enqueued after input write")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.triggers[0].Source != jobs.TriggerWatch {
		t.Fatalf("unexpected trigger %+v", rec.triggers[0])
	}
}

func TestRelevantFiltersOtherFiles(t *testing.T) {
	w := New(config.Config{}, newRecorder())
	target, _ := filepath.Abs("libro.xlsx")
	if !w.relevant(fsnotify.Event{Name: "libro.xlsx", Op: fsnotify.Rename}, target) {
		t.Fatalf("rename of input should be relevant")
	}
	if w.relevant(fsnotify.Event{Name: "libro.xlsx", Op: fsnotify.Chmod}, target) {
		t.Fatalf("chmod should be ignored")
	}
	if w.relevant(fsnotify.Event{Name: "~$libro.xlsx", Op: fsnotify.Write}, target) {
		t.Fatalf("lock files should be ignored")
	}
}

func TestDisabledWatcherAndBackfill(t *testing.T) {
	rec := newRecorder()
	w := New(config.Config{InputPath: "missing/dir/libro.xlsx"}, rec)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("disabled watcher should not fail: %v", err)
	}
	if err := w.Backfill(context.Background()); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(rec.triggers) != 1 || rec.triggers[0].Source != jobs.TriggerStartup {
		t.Fatalf("unexpected triggers %+v", rec.triggers)
	}
}
