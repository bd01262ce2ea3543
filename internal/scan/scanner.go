package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"embyscout/internal/logging"
	"embyscout/internal/metrics"
	"embyscout/internal/registry"
	"embyscout/internal/services"
	"embyscout/internal/services/emby"
)

// Default countdowns.
const (
	DefaultDelay  = 60 * time.Second
	DefaultSettle = 10 * time.Second
)

// Phase is the step a path is in.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseRefreshing Phase = "refreshing"
	PhaseSettling   Phase = "settling"
	PhaseFailed     Phase = "failed"
)

// StatusRequestFailed is shown when the refresh request fails.
const StatusRequestFailed = "scan request failed"

// PathError reports the path a chain stopped at.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string { return fmt.Sprintf("scan %s: %v", e.Path, e.Err) }

func (e *PathError) Unwrap() error { return e.Err }

// Progress is emitted once per countdown second and on phase changes.
type Progress struct {
	Server    string `json:"server"`
	Path      string `json:"path"`
	PathIndex int    `json:"path_index"`
	PathCount int    `json:"path_count"`
	Phase     Phase  `json:"phase"`
	Remaining int    `json:"remaining_seconds"`
	Message   string `json:"message"`
}

// Observer follows a scan chain. PathDone is called exactly once for every
// path that was started; err is non-nil when the chain stops at that path.
type Observer interface {
	Progress(Progress)
	PathDone(path string, err error)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	OnProgress func(Progress)
	OnPathDone func(path string, err error)
}

// Progress implements Observer.
func (o ObserverFuncs) Progress(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

// PathDone implements Observer.
func (o ObserverFuncs) PathDone(path string, err error) {
	if o.OnPathDone != nil {
		o.OnPathDone(path, err)
	}
}

// Refresher posts library refresh requests.
type Refresher interface {
	RefreshLibrary(ctx context.Context, ep emby.Endpoint, path string) error
}

// Notifier is told when a chain finishes or stops on a failure.
type Notifier interface {
	ScanFinished(ctx context.Context, server string, paths []string, err error) error
}

// Options tunes a Scanner. Negative durations are treated as zero.
type Options struct {
	Delay       time.Duration
	Settle      time.Duration
	DefaultPath string
	Metrics     *metrics.Recorder
	Notifier    Notifier
	// Sleep replaces the per-second wait, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Scanner runs rescan chains.
type Scanner struct {
	client Refresher
	opts   Options
	logger *slog.Logger
}

// NewScanner builds a scanner.
func NewScanner(client Refresher, opts Options, logger *slog.Logger) *Scanner {
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.DefaultPath == "" {
		opts.DefaultPath = "/"
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Scanner{client: client, opts: opts, logger: logging.NewComponentLogger(logger, "scan")}
}

// Run rescans paths on server in order. An empty list falls back to the
// server's configured paths, then to the default path. A failed refresh stops
// the chain and is returned.
func (s *Scanner) Run(ctx context.Context, server registry.ServerConfig, paths []string, obs Observer) error {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if len(paths) == 0 {
		paths = server.PathsOrDefault(s.opts.DefaultPath)
	}
	ctx = services.WithServer(ctx, server.Label())
	err := s.run(ctx, server, paths, obs)
	if s.opts.Notifier != nil {
		if nerr := s.opts.Notifier.ScanFinished(context.WithoutCancel(ctx), server.Label(), paths, err); nerr != nil {
			s.logger.Warn("scan notification failed", logging.Error(nerr))
		}
	}
	return err
}

func (s *Scanner) run(ctx context.Context, server registry.ServerConfig, paths []string, obs Observer) error {
	for i, path := range paths {
		pathCtx := services.WithScanPath(ctx, path)
		logger := logging.WithContext(pathCtx, s.logger)
		base := Progress{Server: server.Label(), Path: path, PathIndex: i, PathCount: len(paths)}

		if err := s.countdown(pathCtx, base, PhaseWaiting, s.opts.Delay, obs, logger); err != nil {
			obs.PathDone(path, err)
			return &PathError{Path: path, Err: err}
		}

		p := base
		p.Phase = PhaseRefreshing
		p.Message = fmt.Sprintf("%s %s refreshing", base.Server, path)
		obs.Progress(p)
		err := s.client.RefreshLibrary(pathCtx, server.Endpoint(), path)
		s.opts.Metrics.ObserveScan(server.Label(), err)
		if err != nil {
			p.Phase = PhaseFailed
			p.Message = StatusRequestFailed
			obs.Progress(p)
			logger.Warn("library refresh failed",
				logging.String("error_kind", services.Classify(err)),
				logging.Error(err),
			)
			obs.PathDone(path, err)
			return &PathError{Path: path, Err: err}
		}
		logger.Info("library refresh requested")

		if err := s.countdown(pathCtx, base, PhaseSettling, s.opts.Settle, obs, logger); err != nil {
			obs.PathDone(path, err)
			return &PathError{Path: path, Err: err}
		}
		obs.PathDone(path, nil)
	}
	return nil
}

// countdown emits one progress event per remaining second.
func (s *Scanner) countdown(ctx context.Context, base Progress, phase Phase, total time.Duration, obs Observer, logger *slog.Logger) error {
	seconds := int(total / time.Second)
	sampler := logging.NewProgressSampler(25)
	for remaining := seconds; remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := base
		p.Phase = phase
		p.Remaining = remaining
		p.Message = countdownMessage(base, phase, remaining)
		obs.Progress(p)

		percent := float64(seconds-remaining) / float64(seconds) * 100
		if sampler.ShouldLog(percent, string(phase)) {
			logger.Debug("scan countdown", logging.String("phase", string(phase)), logging.Int("remaining_seconds", remaining))
		}
		if err := s.opts.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func countdownMessage(p Progress, phase Phase, remaining int) string {
	if phase == PhaseSettling {
		return fmt.Sprintf("scan requested, re-searching in %ds", remaining)
	}
	return fmt.Sprintf("%s %s scanning in %ds", p.Server, p.Path, remaining)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
