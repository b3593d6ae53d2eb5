package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maintenance_audit/config"
	"maintenance_audit/internal/events"
	"maintenance_audit/internal/httpapi"
	"maintenance_audit/internal/jobs"
	"maintenance_audit/internal/notify"
	"maintenance_audit/internal/pipeline"
	"maintenance_audit/internal/store"
	"maintenance_audit/internal/watch"
	"maintenance_audit/metrics"
	"maintenance_audit/queue"
)

const shutdownTimeout = 10 * time.Second

// App wires the long-running audit service together.
type App struct {
	cfg      config.Config
	store    *store.Store
	bus      *events.Bus
	metrics  *metrics.Metrics
	queue    *queue.Queue
	runner   *jobs.Runner
	watcher  *watch.Watcher
	notifier *notify.Notifier
	mux      *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	bus := events.NewBus()
	m := metrics.New()
	// One worker: runs over the same workbook must not overlap.
	q := queue.New(cfg.QueueSize, 1, cfg.RunTimeout())
	runner := jobs.NewRunner(cfg, st, pipeline.Stages(cfg, st), bus, m, q)
	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, runner, m).Register(mux)
	return &App{
		cfg:      cfg,
		store:    st,
		bus:      bus,
		metrics:  m,
		queue:    q,
		runner:   runner,
		watcher:  watch.New(cfg, runner),
		notifier: notify.New(cfg),
		mux:      mux,
	}, nil
}

// Run starts the queue, notifier, watcher and HTTP server, and blocks until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	a.queue.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		a.queue.Stop(context.Background())
		return err
	}
	sub := a.bus.Subscribe()
	if !a.notifier.Enabled() {
		zap.L().Info("groupme notifications disabled")
	}
	g.Go(func() error { return a.notifier.Run(ctx, sub) })
	if err := a.watcher.Backfill(ctx); err != nil {
		cancel()
		a.queue.Stop(context.Background())
		a.bus.Close()
		return errors.Join(err, g.Wait())
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		zap.L().Info("http listening", zap.String("addr", a.cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.queue.Stop(shutdownCtx)
		a.bus.Close()
		return err
	})
	return g.Wait()
}

func (a *App) Runner() *jobs.Runner { return a.runner }
func (a *App) Store() *store.Store  { return a.store }
func (a *App) Mux() *http.ServeMux  { return a.mux }
