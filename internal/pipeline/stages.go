package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maintenance_audit/audit"
	"maintenance_audit/config"
	"maintenance_audit/internal/export"
	"maintenance_audit/internal/ingest"
	"maintenance_audit/internal/store"
)

// Stage names, in execution order.
const (
	StageIngest  = "ingest"
	StageAudit   = "audit"
	StageExport  = "export"
	StagePersist = "persist"
)

// State is shared by the stages of one run.
type State struct {
	RunID      string
	Trigger    string
	InputPath  string
	SheetName  string
	ReportPath string
	StartedAt  time.Time

	Batch  ingest.Batch
	Report audit.Report
}

// StageFunc mutates the run state or fails the run.
type StageFunc func(ctx context.Context, st *State) error

// Stage is a named pipeline step.
type Stage struct {
	Name string
	Fn   StageFunc
}

// Stages wires the audit stages. A nil store skips persistence.
func Stages(cfg config.Config, st *store.Store) []Stage {
	return []Stage{
		{Name: StageIngest, Fn: ingestStage(cfg)},
		{Name: StageAudit, Fn: auditStage(cfg)},
		{Name: StageExport, Fn: exportStage()},
		{Name: StagePersist, Fn: persistStage(st)},
	}
}

// Execute runs stages in order and stops at the first failure.
func Execute(ctx context.Context, stages []Stage, st *State) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		start := time.Now()
		if err := stage.Fn(ctx, st); err != nil {
			zap.L().Warn("stage failed", zap.String("run_id", st.RunID), zap.String("stage", stage.Name), zap.Error(err))
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		zap.L().Debug("stage done", zap.String("run_id", st.RunID), zap.String("stage", stage.Name), zap.Duration("took", time.Since(start)))
	}
	return nil
}

func ingestStage(cfg config.Config) StageFunc {
	return func(ctx context.Context, st *State) error {
		path := st.InputPath
		if path == "" {
			path = cfg.InputPath
		}
		sheet := st.SheetName
		if sheet == "" {
			sheet = cfg.SheetName
		}
		batch, err := ingest.ReadFile(path, sheet, cfg.Audit.Columns)
		if err != nil {
			return err
		}
		st.InputPath, st.SheetName, st.Batch = path, sheet, batch
		return nil
	}
}

func auditStage(cfg config.Config) StageFunc {
	opts := cfg.Audit.Options()
	return func(ctx context.Context, st *State) error {
		st.Report = audit.Run(st.Batch.Records, opts)
		zap.L().Info("audit computed",
			zap.String("run_id", st.RunID),
			zap.Int("records", st.Report.RecordCount),
			zap.Int("coverage_rows", len(st.Report.Coverage)),
			zap.Int("alarms", st.Report.RaisedCount()),
			zap.Int("priority_conflicts", len(st.Report.PriorityConflicts)))
		return nil
	}
}

func exportStage() StageFunc {
	return func(ctx context.Context, st *State) error {
		if st.ReportPath == "" {
			return nil
		}
		return export.SaveWorkbook(st.ReportPath, st.Report)
	}
}

func persistStage(s *store.Store) StageFunc {
	return func(ctx context.Context, st *State) error {
		if s == nil {
			return nil
		}
		return s.RecordRun(ctx, RunRecord(st, nil), st.Report.Alarms)
	}
}

// RunRecord converts the run state into its archive row. A non-nil err marks
// the run failed.
func RunRecord(st *State, err error) store.Run {
	finished := time.Now()
	run := store.Run{
		ID:           st.RunID,
		Trigger:      st.Trigger,
		Source:       st.InputPath,
		Status:       store.StatusSucceeded,
		Records:      len(st.Batch.Records),
		Rejected:     len(st.Batch.Rejected),
		FilteredOut:  st.Report.FilteredOut,
		CoverageRows: len(st.Report.Coverage),
		AlarmsRaised: st.Report.RaisedCount(),
		ReportPath:   st.ReportPath,
		StartedAt:    st.StartedAt,
		FinishedAt:   &finished,
	}
	if err != nil {
		msg := err.Error()
		run.Status = store.StatusFailed
		run.Error = &msg
	}
	return run
}
