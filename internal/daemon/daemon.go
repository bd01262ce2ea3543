package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"embyscout/internal/app"
	"embyscout/internal/logging"
)

// Daemon serves the HTTP API and enforces single-instance execution.
type Daemon struct {
	app    *app.App
	logger *slog.Logger
	jobs   *jobTracker
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	StoreDriver  string
	LockFilePath string
	ActiveScans  int
	TMDBEnabled  bool
}

// New constructs a daemon over the wired application components.
func New(a *app.App, logger *slog.Logger) (*Daemon, error) {
	if a == nil || a.Config == nil {
		return nil, errors.New("daemon requires wired application components")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := a.Config.LockPath()
	d := &Daemon{
		app:      a,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		jobs:     newJobTracker(maxRetainedJobs),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(a.Config.Paths.APIBind, a.Config.Paths.APIToken, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another embyscout daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.startedAt = time.Now()
	d.mu.Unlock()

	d.running.Store(true)
	d.logger.Info("embyscout daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop cancels running scan jobs, stops the API, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()

	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("embyscout daemon stopped")
}

// Address returns the bound API address, or "" when not listening.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Handler exposes the API routes without a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	started := d.startedAt
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    started,
		StoreDriver:  d.app.Store.Driver(),
		LockFilePath: d.lockPath,
		ActiveScans:  d.jobs.active(),
		TMDBEnabled:  d.app.TMDB != nil && strings.TrimSpace(d.app.Config.TMDB.APIKey) != "",
	}
}

// baseContext is the parent of background jobs. Jobs started before Start
// (handler tests) run until they finish on their own.
func (d *Daemon) baseContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}
