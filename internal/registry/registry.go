package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"embyscout/internal/logging"
	"embyscout/internal/services"
)

var (
	// ErrNotConfigured means no site matches the page being inspected.
	ErrNotConfigured = errors.New("not configured")
	// ErrUnbound means a site points at a server index that does not exist.
	ErrUnbound = errors.New("unbound")
)

// Backend is the raw key-value storage the registry persists into.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Registry reads and writes the server list, site list, and panel position.
type Registry struct {
	backend Backend
	logger  *slog.Logger
	mu      sync.Mutex
}

// New constructs a registry over backend.
func New(backend Backend, logger *slog.Logger) *Registry {
	return &Registry{backend: backend, logger: logging.NewComponentLogger(logger, "registry")}
}

// Migrate copies legacy records into the v1 keys when the v1 keys are absent.
// It returns the v1 keys that were written.
func (r *Registry) Migrate(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := []struct{ legacy, current string }{
		{LegacyServerListKey, ServerListKey},
		{LegacySiteListKey, SiteListKey},
	}
	var migrated []string
	for _, pair := range pairs {
		raw, ok, err := r.backend.Get(ctx, pair.legacy)
		if err != nil {
			return migrated, fmt.Errorf("read %s: %w", pair.legacy, err)
		}
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		_, exists, err := r.backend.Get(ctx, pair.current)
		if err != nil {
			return migrated, fmt.Errorf("read %s: %w", pair.current, err)
		}
		if exists {
			continue
		}
		if !json.Valid(raw) {
			r.logger.Warn("legacy record is not valid json; skipping",
				logging.String("key", pair.legacy),
				logging.String(logging.FieldEventType, "legacy_migration_skipped"),
			)
			continue
		}
		if err := r.backend.Put(ctx, pair.current, raw); err != nil {
			return migrated, fmt.Errorf("write %s: %w", pair.current, err)
		}
		r.logger.Info("migrated legacy record", logging.String("from", pair.legacy), logging.String("to", pair.current))
		migrated = append(migrated, pair.current)
	}
	return migrated, nil
}

func (r *Registry) load(ctx context.Context, key string, dst any) error {
	raw, ok, err := r.backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Registry) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.backend.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Servers returns the stored server list in order.
func (r *Registry) Servers(ctx context.Context) ([]ServerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.servers(ctx)
}

func (r *Registry) servers(ctx context.Context) ([]ServerConfig, error) {
	var list []ServerConfig
	if err := r.load(ctx, ServerListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Server returns the server at index i.
func (r *Registry) Server(ctx context.Context, i int) (ServerConfig, error) {
	list, err := r.Servers(ctx)
	if err != nil {
		return ServerConfig{}, err
	}
	if i < 0 || i >= len(list) {
		return ServerConfig{}, indexError("server", i, len(list))
	}
	return list[i], nil
}

// SetServers replaces the whole server list.
func (r *Registry) SetServers(ctx context.Context, list []ServerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, ServerListKey, nonNilServers(list))
}

// AddServer appends a server and returns its index.
func (r *Registry) AddServer(ctx context.Context, server ServerConfig) (int, error) {
	server = normalizeServer(server)
	if err := validateServer(server); err != nil {
		return -1, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.servers(ctx)
	if err != nil {
		return -1, err
	}
	list = append(list, server)
	if err := r.save(ctx, ServerListKey, list); err != nil {
		return -1, err
	}
	return len(list) - 1, nil
}

// UpdateServer replaces the server at index i in place.
func (r *Registry) UpdateServer(ctx context.Context, i int, server ServerConfig) error {
	server = normalizeServer(server)
	if err := validateServer(server); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.servers(ctx)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(list) {
		return indexError("server", i, len(list))
	}
	if server.ServerID == "" && list[i].BaseURL() == server.BaseURL() {
		server.ServerID = list[i].ServerID
	}
	list[i] = server
	return r.save(ctx, ServerListKey, list)
}

// RemoveServer deletes the server at index i. Sites are left untouched.
func (r *Registry) RemoveServer(ctx context.Context, i int) (ServerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.servers(ctx)
	if err != nil {
		return ServerConfig{}, err
	}
	if i < 0 || i >= len(list) {
		return ServerConfig{}, indexError("server", i, len(list))
	}
	removed := list[i]
	list = append(list[:i], list[i+1:]...)
	if err := r.save(ctx, ServerListKey, nonNilServers(list)); err != nil {
		return ServerConfig{}, err
	}
	return removed, nil
}

// CacheServerID records id on every server whose base URL equals serverURL.
// It returns the number of entries updated.
func (r *Registry) CacheServerID(ctx context.Context, serverURL, id string) (int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, nil
	}
	base := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.servers(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range list {
		if list[i].BaseURL() == base && list[i].ServerID != id {
			list[i].ServerID = id
			updated++
		}
	}
	if updated == 0 {
		return 0, nil
	}
	return updated, r.save(ctx, ServerListKey, list)
}

// Sites returns the stored site list in order.
func (r *Registry) Sites(ctx context.Context) ([]SiteConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sites(ctx)
}

func (r *Registry) sites(ctx context.Context) ([]SiteConfig, error) {
	var list []SiteConfig
	if err := r.load(ctx, SiteListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetSites replaces the whole site list.
func (r *Registry) SetSites(ctx context.Context, list []SiteConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if list == nil {
		list = []SiteConfig{}
	}
	return r.save(ctx, SiteListKey, list)
}

// AddSite appends a site and returns its index.
func (r *Registry) AddSite(ctx context.Context, site SiteConfig) (int, error) {
	site = normalizeSite(site)
	if err := validateSite(site); err != nil {
		return -1, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.sites(ctx)
	if err != nil {
		return -1, err
	}
	list = append(list, site)
	if err := r.save(ctx, SiteListKey, list); err != nil {
		return -1, err
	}
	return len(list) - 1, nil
}

// UpdateSite replaces the site at index i in place.
func (r *Registry) UpdateSite(ctx context.Context, i int, site SiteConfig) error {
	site = normalizeSite(site)
	if err := validateSite(site); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.sites(ctx)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(list) {
		return indexError("site", i, len(list))
	}
	list[i] = site
	return r.save(ctx, SiteListKey, list)
}

// RemoveSite deletes the site at index i.
func (r *Registry) RemoveSite(ctx context.Context, i int) (SiteConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, err := r.sites(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	if i < 0 || i >= len(list) {
		return SiteConfig{}, indexError("site", i, len(list))
	}
	removed := list[i]
	list = append(list[:i], list[i+1:]...)
	if list == nil {
		list = []SiteConfig{}
	}
	return removed, r.save(ctx, SiteListKey, list)
}

// Position returns the stored panel position or the default.
func (r *Registry) Position(ctx context.Context) (PanelPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := DefaultPosition()
	raw, ok, err := r.backend.Get(ctx, PanelPositionKey)
	if err != nil {
		return pos, fmt.Errorf("read %s: %w", PanelPositionKey, err)
	}
	if !ok || len(raw) == 0 {
		return pos, nil
	}
	if err := json.Unmarshal(raw, &pos); err != nil {
		return DefaultPosition(), fmt.Errorf("decode %s: %w", PanelPositionKey, err)
	}
	return pos, nil
}

// SetPosition stores the panel position.
func (r *Registry) SetPosition(ctx context.Context, pos PanelPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, PanelPositionKey, pos)
}

// ServerForSite resolves the server a site is bound to.
func (r *Registry) ServerForSite(ctx context.Context, site SiteConfig) (ServerConfig, error) {
	list, err := r.Servers(ctx)
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerAt(list, site.ServerIndex)
}

// ServerAt returns list[i] or ErrUnbound when i is out of range.
func ServerAt(list []ServerConfig, i int) (ServerConfig, error) {
	if i < 0 || i >= len(list) {
		return ServerConfig{}, ErrUnbound
	}
	return list[i], nil
}

// MatchSite returns the first configured site matching pageURL and its index.
func (r *Registry) MatchSite(ctx context.Context, pageURL string) (SiteConfig, int, error) {
	list, err := r.Sites(ctx)
	if err != nil {
		return SiteConfig{}, -1, err
	}
	i := MatchSite(list, pageURL)
	if i < 0 {
		return SiteConfig{}, -1, ErrNotConfigured
	}
	return list[i], i, nil
}

// Resolve finds the site for pageURL and the server it is bound to.
func (r *Registry) Resolve(ctx context.Context, pageURL string) (SiteConfig, ServerConfig, error) {
	site, _, err := r.MatchSite(ctx, pageURL)
	if err != nil {
		return SiteConfig{}, ServerConfig{}, err
	}
	server, err := r.ServerForSite(ctx, site)
	if err != nil {
		return site, ServerConfig{}, err
	}
	return site, server, nil
}

// MatchSite returns the index of the first site matching pageURL, or -1.
// A site matches when its host contains or is contained in the page host, or
// when its URL appears verbatim in the page URL.
func MatchSite(sites []SiteConfig, pageURL string) int {
	pageHost := ""
	if parsed, err := url.Parse(strings.TrimSpace(pageURL)); err == nil {
		pageHost = parsed.Host
	}
	for i, site := range sites {
		siteURL := strings.TrimSpace(site.URL)
		if siteURL == "" {
			continue
		}
		if parsed, err := url.Parse(siteURL); err == nil && parsed.Host != "" && pageHost != "" {
			if strings.Contains(pageHost, parsed.Host) || strings.Contains(parsed.Host, pageHost) {
				return i
			}
		}
		if strings.Contains(pageURL, siteURL) {
			return i
		}
	}
	return -1
}

func validateServer(s ServerConfig) error {
	if s.Name == "" || s.URL == "" {
		return services.Wrap(services.ErrValidation, "registry", "server", "name and url are required", nil)
	}
	return nil
}

func validateSite(s SiteConfig) error {
	if s.Name == "" || s.URL == "" {
		return services.Wrap(services.ErrValidation, "registry", "site", "name and url are required", nil)
	}
	return nil
}

func indexError(kind string, i, n int) error {
	return services.Wrap(services.ErrNotFound, "registry", kind,
		fmt.Sprintf("index %d out of range (have %d)", i, n), nil)
}

func nonNilServers(list []ServerConfig) []ServerConfig {
	if list == nil {
		return []ServerConfig{}
	}
	return list
}
