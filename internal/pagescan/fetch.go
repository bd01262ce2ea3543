package pagescan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"embyscout/internal/httpx"
	"embyscout/internal/services"
)

const maxPageBytes = 8 << 20

// Fetcher loads a page from an http(s) URL or a local file.
type Fetcher struct {
	client    httpx.Doer
	userAgent string
}

// NewFetcher builds a fetcher. A nil client selects httpx.Default.
func NewFetcher(client httpx.Doer, userAgent string) *Fetcher {
	if client == nil {
		client = httpx.Default()
	}
	return &Fetcher{client: client, userAgent: strings.TrimSpace(userAgent)}
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch parses the page at source. Local paths may be given bare or as file:// URLs.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*goquery.Document, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "pagescan", "fetch", "page source is empty", nil)
	}
	if IsRemote(source) {
		return f.fetchRemote(ctx, source)
	}
	return fetchFile(strings.TrimPrefix(source, "file://"))
}

func (f *Fetcher) fetchRemote(ctx context.Context, source string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pagescan", "fetch", "build request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := httpx.DoWithRetry(ctx, f.client, req, httpx.PageRetryPolicy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "pagescan", "fetch", source, err)
		}
		return nil, services.Wrap(services.ErrExternalService, "pagescan", "fetch", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, services.Wrap(services.ErrExternalService, "pagescan", "fetch", fmt.Sprintf("%s returned %d", source, resp.StatusCode), nil)
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "pagescan", "parse", source, err)
	}
	return doc, nil
}

func fetchFile(path string) (*goquery.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "pagescan", "open", path, err)
	}
	defer file.Close()
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(file, maxPageBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pagescan", "parse", path, err)
	}
	return doc, nil
}
