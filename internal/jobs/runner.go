package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maintenance_audit/audit"
	"maintenance_audit/config"
	"maintenance_audit/internal/events"
	"maintenance_audit/internal/ingest"
	"maintenance_audit/internal/pipeline"
	"maintenance_audit/internal/store"
	"maintenance_audit/metrics"
	"maintenance_audit/queue"
)

// Trigger sources.
const (
	TriggerCLI     = "cli"
	TriggerWatch   = "watch"
	TriggerHTTP    = "http"
	TriggerStartup = "startup"
)

// Trigger describes why and on what a run starts. Empty paths fall back to
// the configured input and report.
type Trigger struct {
	Source     string `json:"source"`
	InputPath  string `json:"input_path,omitempty"`
	SheetName  string `json:"sheet_name,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string            `json:"run_id"`
	Trigger    string            `json:"trigger"`
	Source     string            `json:"source"`
	ReportPath string            `json:"report_path"`
	Rejected   []ingest.Rejected `json:"rejected"`
	Skipped    int               `json:"skipped"`
	Report     audit.Report      `json:"report"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Runner executes audit runs, directly or through the queue.
type Runner struct {
	cfg     config.Config
	store   *store.Store
	stages  []pipeline.Stage
	bus     *events.Bus
	metrics *metrics.Metrics
	queue   *queue.Queue

	mu     sync.RWMutex
	latest *Result
}

// NewRunner constructs a runner. store, bus, metrics and queue may be nil.
func NewRunner(cfg config.Config, st *store.Store, stages []pipeline.Stage, bus *events.Bus, m *metrics.Metrics, q *queue.Queue) *Runner {
	return &Runner{cfg: cfg, store: st, stages: stages, bus: bus, metrics: m, queue: q}
}

// Run executes every stage once for trig.
func (r *Runner) Run(ctx context.Context, trig Trigger) (*Result, error) {
	state := &pipeline.State{
		RunID:      uuid.NewString(),
		Trigger:    trig.Source,
		InputPath:  trig.InputPath,
		SheetName:  trig.SheetName,
		ReportPath: trig.ReportPath,
		StartedAt:  time.Now(),
	}
	if state.ReportPath == "" {
		state.ReportPath = r.cfg.ReportPath
	}
	logger := zap.L().With(zap.String("run_id", state.RunID), zap.String("trigger", trig.Source))
	logger.Info("audit run started")

	err := pipeline.Execute(ctx, r.stages, state)
	finished := time.Now()
	if r.metrics != nil {
		r.metrics.RecordIngest(len(state.Batch.Records), len(state.Batch.Rejected))
		r.metrics.RecordRun(err, finished.Sub(state.StartedAt))
	}
	if err != nil {
		logger.Error("audit run failed", zap.Error(err))
		if r.store != nil {
			// ctx may already be done; the failure is still worth archiving.
			if serr := r.store.RecordRun(context.Background(), pipeline.RunRecord(state, err), nil); serr != nil {
				logger.Warn("archive failed run", zap.Error(serr))
			}
		}
		r.publish(events.RunCompleted{RunID: state.RunID, Trigger: trig.Source, Source: state.InputPath, Err: err, FinishedAt: finished})
		return nil, err
	}

	res := &Result{
		RunID:      state.RunID,
		Trigger:    trig.Source,
		Source:     state.InputPath,
		ReportPath: state.ReportPath,
		Rejected:   state.Batch.Rejected,
		Skipped:    state.Batch.Skipped,
		Report:     state.Report,
		StartedAt:  state.StartedAt,
		FinishedAt: finished,
	}
	if r.metrics != nil {
		r.metrics.RecordAlarms(res.Report.RaisedCount())
	}
	r.mu.Lock()
	r.latest = res
	r.mu.Unlock()
	logger.Info("audit run finished",
		zap.Int("alarms", res.Report.RaisedCount()),
		zap.Duration("took", finished.Sub(state.StartedAt)))
	r.publish(events.RunCompleted{RunID: res.RunID, Trigger: res.Trigger, Source: res.Source, ReportPath: res.ReportPath, Report: &res.Report, FinishedAt: finished})
	return res, nil
}

// Latest returns the last successful result, or nil before the first one.
func (r *Runner) Latest() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Enqueue submits a run through the queue. Runs on the same input coalesce
// while one is still waiting.
func (r *Runner) Enqueue(trig Trigger) queue.Result {
	if r.queue == nil {
		return queue.NotRunning
	}
	key := trig.InputPath
	if key == "" {
		key = r.cfg.InputPath
	}
	res := r.queue.Enqueue(queue.Job{
		ID:     uuid.NewString(),
		Source: trig.Source,
		Key:    key,
		Work: func(ctx context.Context) error {
			_, err := r.Run(ctx, trig)
			return err
		},
		OnFinish: func(error) { r.updateQueueMetrics() },
	})
	r.updateQueueMetrics()
	return res
}

// QueueStats reports the queue state, zero when running without one.
func (r *Runner) QueueStats() queue.Stats {
	if r.queue == nil {
		return queue.Stats{}
	}
	return r.queue.Stats()
}

func (r *Runner) updateQueueMetrics() {
	if r.metrics == nil || r.queue == nil {
		return
	}
	s := r.queue.Stats()
	r.metrics.UpdateQueue(s.Length, s.Capacity, s.WorkerCount)
}

func (r *Runner) publish(ev events.RunCompleted) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}
