package emby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"embyscout/internal/services"
)

// ErrDecode marks a response body that could not be parsed.
var ErrDecode = errors.New("malformed response")

// HTTPDoer describes the HTTP client used by the Emby client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to Emby-compatible servers.
type Client struct {
	httpClient HTTPDoer
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// New creates an Emby client.
func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchLimit caps how many items a search returns.
const SearchLimit = 20

// SystemInfo fetches /emby/System/Info.
func (c *Client) SystemInfo(ctx context.Context, ep Endpoint) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, ep, "system info", "/emby/System/Info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ping reports whether the server answers /emby/System/Info with an Id.
func (c *Client) Ping(ctx context.Context, ep Endpoint) bool {
	info, err := c.SystemInfo(ctx, ep)
	return err == nil && strings.TrimSpace(info.ID) != ""
}

// SearchItems runs a recursive movie/series search for term.
func (c *Client) SearchItems(ctx context.Context, ep Endpoint, term string) ([]Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "emby", "search", "search term is empty", nil)
	}
	params := url.Values{}
	params.Set("SearchTerm", term)
	params.Set("IncludeItemTypes", TypeMovie+","+TypeSeries)
	params.Set("Recursive", "true")
	params.Set("Fields", "ProductionYear,OriginalTitle")
	params.Set("Limit", fmt.Sprint(SearchLimit))

	var payload ItemsResponse
	if err := c.getJSON(ctx, ep, "search", "/emby/Items", params, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// LatestEpisode returns the most recently premiered episode of a series. The
// boolean is false when the series has no episodes.
func (c *Client) LatestEpisode(ctx context.Context, ep Endpoint, seriesID string) (*Item, bool, error) {
	params := url.Values{}
	params.Set("Limit", "1")
	params.Set("SortBy", "PremiereDate")
	params.Set("SortOrder", "Descending")

	var payload ItemsResponse
	path := "/emby/Shows/" + url.PathEscape(seriesID) + "/Episodes"
	if err := c.getJSON(ctx, ep, "latest episode", path, params, &payload); err != nil {
		return nil, false, err
	}
	if len(payload.Items) == 0 {
		return nil, false, nil
	}
	item := payload.Items[0]
	return &item, true, nil
}

// Show fetches series details, including airing status.
func (c *Client) Show(ctx context.Context, ep Endpoint, seriesID string) (*Show, error) {
	var show Show
	if err := c.getJSON(ctx, ep, "show", "/emby/Shows/"+url.PathEscape(seriesID), nil, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// RefreshLibrary asks the server to rescan path recursively.
func (c *Client) RefreshLibrary(ctx context.Context, ep Endpoint, path string) error {
	params := url.Values{}
	params.Set("path", path)
	params.Set("recursive", "true")
	req, err := c.newRequest(ctx, ep, http.MethodPost, "/emby/Library/Refresh", params)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "refresh")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return checkStatus(resp, "refresh")
}

// ItemURL is the web UI link for an item. serverID may be empty.
func ItemURL(ep Endpoint, itemID, serverID string) string {
	link := ep.Base() + "/web/index.html#!/item?id=" + itemID
	if serverID = strings.TrimSpace(serverID); serverID != "" {
		link += "&serverId=" + serverID
	}
	return link
}

// ImageURL is the primary thumbnail for item, or "" when it has no image tag.
func ImageURL(ep Endpoint, item Item) string {
	tag := item.PrimaryImageTag()
	if tag == "" || item.ID == "" {
		return ""
	}
	params := url.Values{}
	params.Set("tag", tag)
	params.Set("maxWidth", "60")
	if !ep.UseHeader && strings.TrimSpace(ep.APIKey) != "" {
		params.Set("api_key", strings.TrimSpace(ep.APIKey))
	}
	return ep.Base() + "/emby/Items/" + url.PathEscape(item.ID) + "/Images/Primary?" + params.Encode()
}

func (c *Client) getJSON(ctx context.Context, ep Endpoint, op, path string, params url.Values, dst any) error {
	req, err := c.newRequest(ctx, ep, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, op); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return services.Wrap(services.ErrExternalService, "emby", op, "decode response", fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return nil
}

// newRequest builds a request with credentials applied. Query-mode keys are
// appended to the query string, never concatenated onto the path.
func (c *Client) newRequest(ctx context.Context, ep Endpoint, method, path string, params url.Values) (*http.Request, error) {
	base := ep.Base()
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "emby", "request", "server url is empty", nil)
	}
	endpoint, err := url.Parse(base + path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "emby", "request", "parse server url", err)
	}
	if params == nil {
		params = url.Values{}
	}
	key := strings.TrimSpace(ep.APIKey)
	if !ep.UseHeader && key != "" {
		params.Set("api_key", key)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if ep.UseHeader && key != "" {
		req.Header.Set("X-Emby-Token", key)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		latency := time.Since(start).Round(time.Millisecond)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "emby", op, fmt.Sprintf("no response after %v", latency), err)
		}
		return nil, services.Wrap(services.ErrExternalService, "emby", op, fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	marker := services.ErrExternalService
	if resp.StatusCode == http.StatusNotFound {
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, "emby", op, fmt.Sprintf("server returned %d", resp.StatusCode), nil)
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
