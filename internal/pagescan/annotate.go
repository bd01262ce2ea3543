package pagescan

import (
	"context"
	"log/slog"
	"sync"

	"embyscout/internal/library"
	"embyscout/internal/logging"
	"embyscout/internal/metrics"
	"embyscout/internal/services/tmdb"
)

// Annotation is an element with its library status.
type Annotation struct {
	Element
	Status library.Status `json:"status"`
	Site   string         `json:"site,omitempty"`
	Server string         `json:"server,omitempty"`
	// HDHiveURL is set only for missing detail titles.
	HDHiveURL string `json:"hdhive_url,omitempty"`
	Err       error  `json:"-"`
}

// Annotator checks detected elements against the server bound to the page.
type Annotator struct {
	checker    *library.Checker
	resolver   library.SiteResolver
	tmdb       tmdb.Searcher
	hdhiveBase string
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// AnnotatorOptions carries optional collaborators.
type AnnotatorOptions struct {
	// TMDB enables HDHive links for missing titles when set.
	TMDB          tmdb.Searcher
	HDHiveBaseURL string
	Metrics       *metrics.Recorder
}

// NewAnnotator builds an annotator.
func NewAnnotator(checker *library.Checker, resolver library.SiteResolver, opts AnnotatorOptions, logger *slog.Logger) *Annotator {
	return &Annotator{
		checker:    checker,
		resolver:   resolver,
		tmdb:       opts.TMDB,
		hdhiveBase: opts.HDHiveBaseURL,
		metrics:    opts.Metrics,
		logger:     logging.NewComponentLogger(logger, "pagescan"),
	}
}

// Annotate checks every element concurrently. Results keep the input order
// and one element's failure never affects another.
func (a *Annotator) Annotate(ctx context.Context, pageURL string, elements []Element) []Annotation {
	out := make([]Annotation, len(elements))
	var wg sync.WaitGroup
	for i, el := range elements {
		a.metrics.ObservePageElement(string(el.Kind))
		wg.Add(1)
		go func(i int, el Element) {
			defer wg.Done()
			out[i] = a.annotate(ctx, pageURL, el)
		}(i, el)
	}
	wg.Wait()
	return out
}

func (a *Annotator) annotate(ctx context.Context, pageURL string, el Element) (ann Annotation) {
	ann = Annotation{Element: el, Status: library.StatusChecking}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("annotate panicked", logging.String("title", el.Title), logging.Any("panic", r))
			ann.Status = library.StatusError
		}
		a.metrics.ObserveCheck(string(ann.Status))
	}()

	res := a.checker.Check(ctx, a.resolver, pageURL, el.Title)
	ann.Status = res.Status
	ann.Site = res.Site
	ann.Server = res.Server
	ann.Err = res.Err
	if el.Kind == KindTitle && res.Status == library.StatusMissing {
		ann.HDHiveURL = a.hdhiveLink(ctx, el.Title)
	}
	return ann
}

func (a *Annotator) hdhiveLink(ctx context.Context, title string) string {
	if a.tmdb == nil {
		return ""
	}
	match, ok, err := tmdb.Lookup(ctx, a.tmdb, title)
	if err != nil {
		a.logger.Warn("tmdb lookup failed", logging.String("title", title), logging.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return tmdb.HDHiveURL(a.hdhiveBase, match)
}
