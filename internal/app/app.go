// Package app assembles the long-lived components shared by the CLI and the
// daemon from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"embyscout/internal/config"
	"embyscout/internal/httpx"
	"embyscout/internal/library"
	"embyscout/internal/logging"
	"embyscout/internal/metrics"
	"embyscout/internal/notifications"
	"embyscout/internal/pagescan"
	"embyscout/internal/registry"
	"embyscout/internal/scan"
	"embyscout/internal/search"
	"embyscout/internal/services/emby"
	"embyscout/internal/services/tmdb"
	"embyscout/internal/store"
)

// perServerConcurrency caps in-flight requests to one media server.
const perServerConcurrency = 4

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Registry *registry.Registry
	Emby     *emby.Client
	// TMDB is nil when no API key is configured.
	TMDB      *tmdb.Client
	Search    *search.Dispatcher
	Checker   *library.Checker
	Scanner   *scan.Scanner
	Annotator *pagescan.Annotator
	Fetcher   *pagescan.Fetcher
	Notifier  notifications.Service
	Metrics   *metrics.Recorder
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	scanSleep func(context.Context, time.Duration) error
}

// WithScanSleep replaces the scan countdown sleep.
func WithScanSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *buildOptions) { o.scanSleep = fn }
}

// Build opens the store, migrates legacy records, and constructs every
// component. Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	reg := registry.New(st, logger)
	if migrated, err := reg.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate legacy records: %w", err)
	} else if len(migrated) > 0 {
		logger.Info("migrated legacy records", logging.Any("keys", migrated))
	}

	rec := metrics.New()
	doer := httpx.LimitedDoer{Next: httpx.Default(), Sem: httpx.NewHostSemaphore(perServerConcurrency)}
	embyClient := emby.New(emby.WithHTTPClient(doer), emby.WithUserAgent(cfg.HTTP.UserAgent))

	var tmdbClient *tmdb.Client
	if strings.TrimSpace(cfg.TMDB.APIKey) != "" {
		tmdbClient, err = tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
			tmdb.WithHTTPClient(httpx.WithTimeout(cfg.InfoTimeout())))
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("tmdb client: %w", err)
		}
	}

	notifier := notifications.NewService(cfg)
	checker := library.NewChecker(embyClient, cfg.CheckTimeout(), logger)

	annotatorOpts := pagescan.AnnotatorOptions{HDHiveBaseURL: cfg.Page.HDHiveBaseURL, Metrics: rec}
	if tmdbClient != nil {
		annotatorOpts.TMDB = tmdbClient
	}

	dispatcher := search.NewDispatcher(embyClient, reg, search.Options{
		SearchTimeout: cfg.SearchTimeout(),
		InfoTimeout:   cfg.InfoTimeout(),
		Metrics:       rec,
	}, logger)
	scanner := scan.NewScanner(embyClient, scan.Options{
		Delay:       cfg.ScanDelay(),
		Settle:      cfg.ScanSettle(),
		DefaultPath: cfg.Scan.DefaultPath,
		Metrics:     rec,
		Notifier:    notifications.ScanNotifier{Service: notifier},
		Sleep:       bo.scanSleep,
	}, logger)
	fetchClient := httpx.WithTimeout(time.Duration(cfg.Page.FetchTimeout) * time.Second)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Store:     st,
		Registry:  reg,
		Emby:      embyClient,
		TMDB:      tmdbClient,
		Search:    dispatcher,
		Checker:   checker,
		Scanner:   scanner,
		Annotator: pagescan.NewAnnotator(checker, reg, annotatorOpts, logger),
		Fetcher:   pagescan.NewFetcher(fetchClient, cfg.HTTP.UserAgent),
		Notifier:  notifier,
		Metrics:   rec,
	}
	return a, nil
}

// PageScanner returns a scanner with its own marker set.
func (a *App) PageScanner() *pagescan.Scanner {
	return pagescan.NewScanner(a.Fetcher, a.Annotator, a.Metrics, a.Logger)
}

// Probe reports whether server answers System/Info with an id, and caches
// that id in the server list.
func (a *App) Probe(ctx context.Context, server registry.ServerConfig) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.ProbeTimeout())
	defer cancel()
	info, err := a.Emby.SystemInfo(ctx, server.Endpoint())
	if err != nil {
		return false, err
	}
	id := strings.TrimSpace(info.ID)
	if id == "" {
		return false, nil
	}
	if _, err := a.Registry.CacheServerID(ctx, server.URL, id); err != nil {
		a.Logger.Warn("cache server id failed", logging.String(logging.FieldServer, server.Label()), logging.Error(err))
	}
	return true, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
