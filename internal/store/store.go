package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"maintenance_audit/audit"
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store wraps SQLite access for the audit run archive.
type Store struct {
	db *sql.DB
}

// Run is one archived audit execution.
type Run struct {
	ID           string     `json:"id"`
	Trigger      string     `json:"trigger"`
	Source       string     `json:"source"`
	Status       string     `json:"status"`
	Records      int        `json:"records"`
	Rejected     int        `json:"rejected"`
	FilteredOut  int        `json:"filtered_out"`
	CoverageRows int        `json:"coverage_rows"`
	AlarmsRaised int        `json:"alarms_raised"`
	ReportPath   string     `json:"report_path"`
	Error        *string    `json:"error"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// RunAlarm is a raised alarm archived with its run.
type RunAlarm struct {
	RunID    string `json:"run_id"`
	SiteID   string `json:"site_id"`
	Month    string `json:"month"`
	Priority string `json:"priority"`
	Total    int    `json:"total"`
	Delta    int    `json:"delta"`
	Message  string `json:"message"`
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			trigger_source TEXT,
			source TEXT,
			status TEXT,
			records INTEGER,
			rejected INTEGER,
			filtered_out INTEGER,
			coverage_rows INTEGER,
			alarms_raised INTEGER,
			report_path TEXT,
			error TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
		`CREATE TABLE IF NOT EXISTS run_alarms (
			run_id TEXT,
			site_id TEXT,
			month TEXT,
			priority TEXT,
			total INTEGER,
			delta INTEGER,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_run_alarms_run ON run_alarms(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun archives a run and its raised alarms in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, alarms []audit.Alarm) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, trigger_source, source, status, records, rejected, filtered_out, coverage_rows, alarms_raised, report_path, error, started_at, finished_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, records=excluded.records, rejected=excluded.rejected, filtered_out=excluded.filtered_out,
			coverage_rows=excluded.coverage_rows, alarms_raised=excluded.alarms_raised, report_path=excluded.report_path, error=excluded.error, finished_at=excluded.finished_at`,
		run.ID, run.Trigger, run.Source, run.Status, run.Records, run.Rejected, run.FilteredOut, run.CoverageRows, run.AlarmsRaised, run.ReportPath, run.Error, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_alarms WHERE run_id=?`, run.ID); err != nil {
		return err
	}
	for _, a := range alarms {
		if !a.Raised() {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_alarms(run_id, site_id, month, priority, total, delta, message) VALUES(?,?,?,?,?,?,?)`,
			run.ID, a.SiteID, string(a.Month), a.Priority, a.Total, a.Delta, a.Message); err != nil {
			return fmt.Errorf("insert alarm: %w", err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, trigger_source, source, status, records, rejected, filtered_out, coverage_rows, alarms_raised, report_path, error, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var errMsg sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.Trigger, &r.Source, &r.Status, &r.Records, &r.Rejected, &r.FilteredOut, &r.CoverageRows, &r.AlarmsRaised, &r.ReportPath, &errMsg, &r.StartedAt, &finished); err != nil {
		return r, err
	}
	if errMsg.Valid {
		r.Error = &errMsg.String
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *Store) RunAlarms(ctx context.Context, id string) ([]RunAlarm, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, site_id, month, priority, total, delta, message FROM run_alarms WHERE run_id=? ORDER BY site_id, month`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alarms := []RunAlarm{}
	for rows.Next() {
		var a RunAlarm
		if err := rows.Scan(&a.RunID, &a.SiteID, &a.Month, &a.Priority, &a.Total, &a.Delta, &a.Message); err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
