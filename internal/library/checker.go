package library

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"embyscout/internal/logging"
	"embyscout/internal/registry"
	"embyscout/internal/services"
	"embyscout/internal/services/emby"
	"embyscout/internal/textutil"
)

// DefaultTimeout bounds a single presence check.
const DefaultTimeout = 15 * time.Second

// ItemSearcher is the subset of the Emby client used for presence checks.
type ItemSearcher interface {
	SearchItems(ctx context.Context, ep emby.Endpoint, term string) ([]emby.Item, error)
}

// SiteResolver maps a page URL to its site and bound server.
type SiteResolver interface {
	Resolve(ctx context.Context, pageURL string) (registry.SiteConfig, registry.ServerConfig, error)
}

// Result is the outcome of checking one title.
type Result struct {
	Title  string
	Status Status
	Site   string
	Server string
	Err    error
}

// Checker runs in-library checks against media servers.
type Checker struct {
	client  ItemSearcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker builds a checker. A non-positive timeout selects DefaultTimeout.
func NewChecker(client ItemSearcher, timeout time.Duration, logger *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client:  client,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "library"),
	}
}

// Present searches server for title and applies the match rule.
func (c *Checker) Present(ctx context.Context, server registry.ServerConfig, title string) (bool, error) {
	if strings.TrimSpace(title) == "" {
		return false, services.Wrap(services.ErrValidation, "library", "check", "title is empty", nil)
	}
	if server.BaseURL() == "" {
		return false, services.Wrap(services.ErrConfiguration, "library", "check", "server url is empty", nil)
	}
	ctx, cancel := context.WithTimeout(services.WithServer(ctx, server.Label()), c.timeout)
	defer cancel()

	items, err := c.client.SearchItems(ctx, server.Endpoint(), title)
	if err != nil {
		return false, err
	}
	return Matches(items, title), nil
}

// Check resolves the server bound to pageURL and checks title there. Every
// failure is folded into the returned status; Err carries the cause.
func (c *Checker) Check(ctx context.Context, resolver SiteResolver, pageURL, title string) Result {
	res := Result{Title: title, Status: StatusChecking}
	site, server, err := resolver.Resolve(ctx, pageURL)
	res.Site = site.Name
	if err != nil {
		res.Status = statusForResolveError(err)
		res.Err = err
		return res
	}
	res.Server = server.Label()
	return c.CheckServer(ctx, server, res)
}

// CheckServer checks res.Title on an already resolved server.
func (c *Checker) CheckServer(ctx context.Context, server registry.ServerConfig, res Result) Result {
	res.Server = server.Label()
	present, err := c.Present(ctx, server, res.Title)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		c.logger.Warn("library check failed",
			logging.String(logging.FieldServer, res.Server),
			logging.String("title", res.Title),
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
		)
		return res
	}
	if present {
		res.Status = StatusInLibrary
	} else {
		res.Status = StatusMissing
	}
	c.logger.Debug("library check",
		logging.String(logging.FieldServer, res.Server),
		logging.String("title", res.Title),
		logging.String("status", string(res.Status)),
	)
	return res
}

// Matches reports whether any item is the title: its name equals the title or
// its name or original title fuzzily matches, and its production year agrees
// with any year written in the title.
func Matches(items []emby.Item, title string) bool {
	for _, it := range items {
		if MatchesItem(it, title) {
			return true
		}
	}
	return false
}

// MatchesItem applies the match rule to a single item.
func MatchesItem(it emby.Item, title string) bool {
	nameOK := it.Name == title ||
		textutil.TitleMatch(it.Name, title) ||
		textutil.TitleMatch(it.OriginalTitle, title)
	return nameOK && textutil.YearMatches(title, it.ProductionYear)
}
