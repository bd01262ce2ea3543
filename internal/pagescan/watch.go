package pagescan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"embyscout/internal/logging"
	"embyscout/internal/metrics"
	"embyscout/internal/services"
)

// DefaultWatchInterval is the poll period when none is configured.
const DefaultWatchInterval = 5 * time.Second

// Scanner fetches a page, detects new elements, and annotates them.
type Scanner struct {
	fetcher   *Fetcher
	annotator *Annotator
	markers   *Markers
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// NewScanner builds a scanner with a fresh marker set.
func NewScanner(fetcher *Fetcher, annotator *Annotator, rec *metrics.Recorder, logger *slog.Logger) *Scanner {
	return &Scanner{
		fetcher:   fetcher,
		annotator: annotator,
		markers:   NewMarkers(),
		metrics:   rec,
		logger:    logging.NewComponentLogger(logger, "pagescan"),
	}
}

// Scan processes source once and returns annotations for elements not seen
// by an earlier Scan. pageURL selects the site binding; when empty the
// source itself is used.
func (s *Scanner) Scan(ctx context.Context, source, pageURL string) ([]Annotation, error) {
	if strings.TrimSpace(pageURL) == "" {
		pageURL = source
	}
	doc, err := s.fetcher.Fetch(ctx, source)
	s.metrics.ObservePageFetch(err)
	if err != nil {
		return nil, err
	}
	fresh := s.markers.Fresh(Detect(doc))
	if len(fresh) == 0 {
		return nil, nil
	}
	s.logger.Debug("page elements detected",
		logging.String("page", pageURL),
		logging.Int("new", len(fresh)),
		logging.Int("total_marked", s.markers.Len()),
	)
	return s.annotator.Annotate(ctx, pageURL, fresh), nil
}

// WatchOptions tunes Watch.
type WatchOptions struct {
	Interval             time.Duration
	MaxRequestsPerMinute int
}

// Watch polls source until ctx ends, handing each batch of new annotations
// to handle. Fetch failures are logged and the loop keeps going.
func (s *Scanner) Watch(ctx context.Context, source, pageURL string, opts WatchOptions, handle func([]Annotation)) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchInterval
	}
	limit := rate.Inf
	if opts.MaxRequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.MaxRequestsPerMinute))
	}
	limiter := rate.NewLimiter(limit, 1)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctxErr(ctx, err)
		}
		batch, err := s.Scan(ctx, source, pageURL)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logger.Warn("page poll failed",
				logging.String("page", source),
				logging.String("error_kind", services.Classify(err)),
				logging.Error(err),
			)
		case len(batch) > 0:
			handle(batch)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ctxErr prefers the context error over the limiter's own wording.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
