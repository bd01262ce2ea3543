package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"embyscout/internal/logging"
	"embyscout/internal/metrics"
	"embyscout/internal/registry"
	"embyscout/internal/services"
	"embyscout/internal/services/emby"
	"embyscout/internal/textutil"
)

// Default per-call timeouts.
const (
	DefaultSearchTimeout = 20 * time.Second
	DefaultInfoTimeout   = 15 * time.Second
)

// Options tunes a Dispatcher.
type Options struct {
	SearchTimeout time.Duration
	InfoTimeout   time.Duration
	Metrics       *metrics.Recorder
}

// Dispatcher runs keyword searches across every configured server.
type Dispatcher struct {
	client  MediaClient
	servers ServerSource
	opts    Options
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher. Zero timeouts select the defaults.
func NewDispatcher(client MediaClient, servers ServerSource, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	if opts.InfoTimeout <= 0 {
		opts.InfoTimeout = DefaultInfoTimeout
	}
	return &Dispatcher{
		client:  client,
		servers: servers,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "search"),
	}
}

// Search reports a searching block and then one terminal block for each
// server. With no servers configured it reports a single not-configured block
// and issues no request.
func (d *Dispatcher) Search(ctx context.Context, keyword string, sink Sink) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return services.Wrap(services.ErrValidation, "search", "dispatch", "keyword is empty", nil)
	}
	list, err := d.servers.Servers(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		sink.Report(Block{ServerIndex: -1, State: StateNotConfigured})
		return nil
	}

	var wg sync.WaitGroup
	for i, server := range list {
		sink.Report(Block{ServerIndex: i, Server: server.Label(), State: StateSearching})
		wg.Add(1)
		go func(i int, server registry.ServerConfig) {
			defer wg.Done()
			sink.Report(d.searchServer(ctx, i, server, keyword))
		}(i, server)
	}
	wg.Wait()
	return nil
}

// Collect runs Search and returns the terminal block of every server ordered
// by server index.
func (d *Dispatcher) Collect(ctx context.Context, keyword string) ([]Block, error) {
	var (
		mu     sync.Mutex
		blocks []Block
	)
	err := d.Search(ctx, keyword, SinkFunc(func(b Block) {
		if !b.Terminal() {
			return
		}
		mu.Lock()
		blocks = append(blocks, b)
		mu.Unlock()
	}))
	if err != nil {
		return nil, err
	}
	sortBlocks(blocks)
	return blocks, nil
}

func (d *Dispatcher) searchServer(ctx context.Context, index int, server registry.ServerConfig, keyword string) Block {
	block := Block{ServerIndex: index, Server: server.Label()}
	ctx = services.WithServer(ctx, server.Label())
	logger := logging.WithContext(ctx, d.logger)
	ep := server.Endpoint()

	searchCtx, cancel := context.WithTimeout(ctx, d.opts.SearchTimeout)
	start := time.Now()
	items, err := d.client.SearchItems(searchCtx, ep, keyword)
	cancel()
	d.opts.Metrics.ObserveSearch(server.Label(), time.Since(start), err)
	if err != nil {
		logger.Warn("server search failed",
			logging.String("keyword", keyword),
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
		)
		block.State = StateFailed
		block.Err = err
		return block
	}

	final := Select(items, keyword)
	if len(final) == 0 {
		block.State = StateMissing
		block.ScanOffered = len(server.ScanPaths) > 0
		logger.Info("title not in library", logging.String("keyword", keyword), logging.Bool("scan_offered", block.ScanOffered))
		return block
	}

	serverID := d.resolveServerID(ctx, server)
	hits := make([]Hit, len(final))
	var wg sync.WaitGroup
	for i, item := range final {
		hits[i] = Hit{
			ID:       item.ID,
			Name:     item.Name,
			Type:     item.Type,
			Year:     item.ProductionYear,
			OpenURL:  emby.ItemURL(ep, item.ID, serverID),
			ImageURL: emby.ImageURL(ep, item),
		}
		if item.Type != emby.TypeSeries {
			continue
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			infoCtx, cancel := context.WithTimeout(ctx, d.opts.InfoTimeout)
			defer cancel()
			hits[i].Episode = episodeSummary(infoCtx, d.client, ep, id)
		}(i, item.ID)
	}
	wg.Wait()

	block.State = StateResults
	block.Hits = hits
	logger.Debug("server search complete", logging.String("keyword", keyword), logging.Int("hits", len(hits)))
	return block
}

// resolveServerID returns the cached server id or fetches and persists it.
// Failures leave the id empty so links are built without it.
func (d *Dispatcher) resolveServerID(ctx context.Context, server registry.ServerConfig) string {
	if server.ServerID != "" {
		return server.ServerID
	}
	infoCtx, cancel := context.WithTimeout(ctx, d.opts.InfoTimeout)
	defer cancel()
	info, err := d.client.SystemInfo(infoCtx, server.Endpoint())
	if err != nil || strings.TrimSpace(info.ID) == "" {
		d.logger.Debug("server id unavailable", logging.String(logging.FieldServer, server.Label()), logging.Error(err))
		return ""
	}
	if _, err := d.servers.CacheServerID(ctx, server.URL, info.ID); err != nil {
		d.logger.Warn("cache server id failed", logging.String(logging.FieldServer, server.Label()), logging.Error(err))
	}
	return info.ID
}

// Select keeps movies and series, then narrows to items whose name or
// original title matches keyword with an agreeing year. When nothing matches
// exactly the type-filtered list is returned instead.
func Select(items []emby.Item, keyword string) []emby.Item {
	filtered := make([]emby.Item, 0, len(items))
	for _, it := range items {
		if it.Type == emby.TypeMovie || it.Type == emby.TypeSeries {
			filtered = append(filtered, it)
		}
	}
	var exact []emby.Item
	for _, it := range filtered {
		nameOK := textutil.TitleMatch(it.Name, keyword) || textutil.TitleMatch(it.OriginalTitle, keyword)
		if nameOK && textutil.YearMatches(keyword, it.ProductionYear) {
			exact = append(exact, it)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return filtered
}

func sortBlocks(blocks []Block) {
	slices.SortFunc(blocks, func(a, b Block) int {
		return cmp.Compare(a.ServerIndex, b.ServerIndex)
	})
}
