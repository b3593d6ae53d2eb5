package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"maintenance_audit/audit"
	"maintenance_audit/config"
	"maintenance_audit/internal/chart"
	"maintenance_audit/internal/export"
	"maintenance_audit/internal/jobs"
	"maintenance_audit/internal/store"
	"maintenance_audit/metrics"
	"maintenance_audit/queue"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Budget for POST /ops/run: a short burst, then one run per manualRunEvery.
const (
	manualRunEvery = 10 * time.Second
	manualRunBurst = 3
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg     config.Config
	store   *store.Store
	runner  *jobs.Runner
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

func NewRouter(cfg config.Config, st *store.Store, runner *jobs.Runner, m *metrics.Metrics) *Router {
	return &Router{
		cfg:     cfg,
		store:   st,
		runner:  runner,
		metrics: m,
		limiter: rate.NewLimiter(rate.Every(manualRunEvery), manualRunBurst),
	}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/report", r.report)
	mux.HandleFunc("GET /api/report.xlsx", r.reportWorkbook)
	mux.HandleFunc("GET /api/coverage", r.coverage)
	mux.HandleFunc("GET /api/status", r.status)
	mux.HandleFunc("GET /api/roster/contractors", r.roster(func(rep audit.Report) []audit.RosterRow { return rep.Contractors }))
	mux.HandleFunc("GET /api/roster/offices", r.roster(func(rep audit.Report) []audit.RosterRow { return rep.Offices }))
	mux.HandleFunc("GET /api/alarms", r.alarms)
	mux.HandleFunc("GET /api/sites/{site}/chart.png", r.siteChart)
	mux.HandleFunc("GET /ops/health", r.health)
	mux.HandleFunc("GET /ops/status", r.opsStatus)
	mux.HandleFunc("GET /ops/runs", r.runs)
	mux.HandleFunc("GET /ops/runs/{id}", r.runDetail)
	mux.HandleFunc("POST /ops/run", r.enqueue)
}

// latest writes 503 and returns nil when no run has completed yet.
func (r *Router) latest(w http.ResponseWriter) *jobs.Result {
	res := r.runner.Latest()
	if res == nil {
		http.Error(w, "no report available yet", http.StatusServiceUnavailable)
	}
	return res
}

func (r *Router) report(w http.ResponseWriter, req *http.Request) {
	if res := r.latest(w); res != nil {
		respondJSON(w, res)
	}
}

func (r *Router) reportWorkbook(w http.ResponseWriter, req *http.Request) {
	res := r.latest(w)
	if res == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, res.Report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="Reporte_Control.xlsx"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("write workbook", zap.Error(err))
	}
}

func (r *Router) coverage(w http.ResponseWriter, req *http.Request) {
	res := r.latest(w)
	if res == nil {
		return
	}
	rows := res.Report.Coverage
	if site := strings.TrimSpace(req.URL.Query().Get("site")); site != "" {
		rows = res.Report.SiteHistory(site)
	}
	if rows == nil {
		rows = []audit.CoverageRow{}
	}
	respondJSON(w, map[string]any{"vocabulary": res.Report.Vocabulary, "rows": rows})
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	if res := r.latest(w); res != nil {
		respondJSON(w, res.Report.Status)
	}
}

func (r *Router) roster(pick func(audit.Report) []audit.RosterRow) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if res := r.latest(w); res != nil {
			respondJSON(w, pick(res.Report))
		}
	}
}

func (r *Router) alarms(w http.ResponseWriter, req *http.Request) {
	res := r.latest(w)
	if res == nil {
		return
	}
	series := audit.AlarmSeries{Label: audit.SeriesLabel(""), Tier: res.Report.AlarmTier, Alarms: res.Report.Alarms}
	if tier := strings.TrimSpace(req.URL.Query().Get("tier")); tier != "" {
		var ok bool
		if series, ok = res.Report.Series(tier); !ok {
			http.Error(w, "unknown tier", http.StatusNotFound)
			return
		}
	}
	if req.URL.Query().Get("all") != "1" {
		raised := []audit.Alarm{}
		for _, a := range series.Alarms {
			if a.Raised() {
				raised = append(raised, a)
			}
		}
		series.Alarms = raised
	}
	respondJSON(w, series)
}

func (r *Router) siteChart(w http.ResponseWriter, req *http.Request) {
	res := r.latest(w)
	if res == nil {
		return
	}
	site := req.PathValue("site")
	history := res.Report.SiteHistory(site)
	if len(history) == 0 {
		http.NotFound(w, req)
		return
	}
	img := chart.Render(chart.MonthlyTotals(history, res.Report.SiteAlarms(site)), chart.Options{Title: site})
	var buf bytes.Buffer
	if err := chart.EncodePNG(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Warn("write chart", zap.Error(err))
	}
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) opsStatus(w http.ResponseWriter, req *http.Request) {
	payload := map[string]any{
		"input_path": r.cfg.InputPath,
		"queue":      r.runner.QueueStats(),
	}
	if r.metrics != nil {
		payload["metrics"] = r.metrics.Snapshot()
	}
	if res := r.runner.Latest(); res != nil {
		payload["latest_run"] = map[string]any{
			"run_id":        res.RunID,
			"trigger":       res.Trigger,
			"finished_at":   res.FinishedAt,
			"records":       res.Report.RecordCount,
			"alarms_raised": res.Report.RaisedCount(),
		}
	}
	respondJSON(w, payload)
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := r.store.ListRuns(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func (r *Router) runDetail(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	id := req.PathValue("id")
	run, err := r.store.GetRun(req.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, req)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	alarms, err := r.store.RunAlarms(req.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"run": run, "alarms": alarms})
}

func (r *Router) enqueue(w http.ResponseWriter, req *http.Request) {
	var body struct {
		InputPath string `json:"input_path"`
		SheetName string `json:"sheet_name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.InputPath != "" && !sameFile(body.InputPath, r.cfg.InputPath) {
		http.Error(w, "input_path must be the configured input", http.StatusBadRequest)
		return
	}
	if !r.limiter.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(int(manualRunEvery.Seconds())))
		http.Error(w, "too many manual runs", http.StatusTooManyRequests)
		return
	}
	res := r.runner.Enqueue(jobs.Trigger{Source: jobs.TriggerHTTP, SheetName: body.SheetName})
	switch res {
	case queue.Enqueued, queue.Coalesced:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": res.String()}); err != nil {
			zap.L().Warn("write json", zap.Error(err))
		}
	case queue.Full:
		http.Error(w, "run queue full", http.StatusTooManyRequests)
	default:
		http.Error(w, "run queue not running", http.StatusServiceUnavailable)
	}
}

// sameFile reports whether a and b resolve to the same absolute path.
func sameFile(a, b string) bool {
	if b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json", zap.Error(err))
	}
}
