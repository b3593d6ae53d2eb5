package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"maintenance_audit/config"
	"maintenance_audit/internal/jobs"
	"maintenance_audit/queue"
)

// Enqueuer submits audit runs.
type Enqueuer interface {
	Enqueue(trig jobs.Trigger) queue.Result
}

// Watcher monitors the input workbook and enqueues a run whenever it changes.
type Watcher struct {
	cfg    config.Config
	runner Enqueuer
}

func New(cfg config.Config, runner Enqueuer) *Watcher {
	return &Watcher{cfg: cfg, runner: runner}
}

// Start watches the directory holding the input file so that replacing the
// file counts as a change too.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.WatchEnabled {
		zap.L().Info("watcher disabled")
		return nil
	}
	target, err := filepath.Abs(w.cfg.InputPath)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}
	zap.L().Info("watching input", zap.String("path", target))
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(evt, target) {
					continue
				}
				res := w.runner.Enqueue(jobs.Trigger{Source: jobs.TriggerWatch})
				zap.L().Info("input changed", zap.String("op", evt.Op.String()), zap.Stringer("enqueue", res))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (w *Watcher) relevant(evt fsnotify.Event, target string) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}
	return name == target
}

// Backfill enqueues one run for the current input, if present.
func (w *Watcher) Backfill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := w.runner.Enqueue(jobs.Trigger{Source: jobs.TriggerStartup})
	zap.L().Info("startup run", zap.Stringer("enqueue", res))
	return nil
}
