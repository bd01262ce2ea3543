package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"embyscout/internal/api"
	"embyscout/internal/config"
	"embyscout/internal/httpx"
)

// ClientTokenEnv supplies the bearer token when the configured api_token is a
// bcrypt hash and therefore cannot be sent as-is.
const ClientTokenEnv = "EMBYSCOUT_CLIENT_TOKEN"

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    httpx.Doer
}

// NewClient builds a client for the daemon configured in cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is not configured")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", bind, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	token := strings.TrimSpace(cfg.Paths.APIToken)
	if strings.HasPrefix(token, "$2") {
		token = strings.TrimSpace(os.Getenv(ClientTokenEnv))
	}
	return &Client{
		baseURL: "http://" + net.JoinHostPort(host, port),
		token:   token,
		http:    httpx.WithTimeout(5 * time.Second),
	}, nil
}

// NewClientForURL builds a client for an explicit base URL.
func NewClientForURL(baseURL, token string, doer httpx.Doer) *Client {
	if doer == nil {
		doer = httpx.WithTimeout(5 * time.Second)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: doer}
}

// BaseURL returns the daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

// Status fetches /api/status. An unreachable daemon yields ErrDaemonNotRunning.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if isDaemonUnavailable(err) {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return fmt.Errorf("daemon %s: %s", path, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, os.ErrNotExist)
}
