package search

import (
	"context"

	"embyscout/internal/registry"
	"embyscout/internal/services/emby"
)

// State is the lifecycle of one server's result block.
type State string

const (
	StateNotConfigured State = "not configured"
	StateSearching     State = "searching"
	StateResults       State = "results"
	StateMissing       State = "not in library"
	StateFailed        State = "request failed"
)

// Hit is one rendered search result.
type Hit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Year     int    `json:"year,omitempty"`
	OpenURL  string `json:"open_url"`
	ImageURL string `json:"image_url,omitempty"`
	// Episode summarizes the latest episode for series.
	Episode string `json:"episode,omitempty"`
}

// Block is the state of one server's results. Blocks for the same server are
// reported in order: searching first, then exactly one terminal state.
type Block struct {
	ServerIndex int    `json:"server_index"`
	Server      string `json:"server"`
	State       State  `json:"state"`
	Hits        []Hit  `json:"hits,omitempty"`
	// ScanOffered is set on a missing block when the server has scan paths.
	ScanOffered bool  `json:"scan_offered,omitempty"`
	Err         error `json:"-"`
}

// Terminal reports whether no further blocks follow for this server.
func (b Block) Terminal() bool {
	return b.State != StateSearching
}

// Sink receives blocks. Report may be called from several goroutines.
type Sink interface {
	Report(Block)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Block)

// Report implements Sink.
func (f SinkFunc) Report(b Block) { f(b) }

// MediaClient is the subset of the Emby client a search needs.
type MediaClient interface {
	SearchItems(ctx context.Context, ep emby.Endpoint, term string) ([]emby.Item, error)
	LatestEpisode(ctx context.Context, ep emby.Endpoint, seriesID string) (*emby.Item, bool, error)
	Show(ctx context.Context, ep emby.Endpoint, seriesID string) (*emby.Show, error)
	SystemInfo(ctx context.Context, ep emby.Endpoint) (*emby.SystemInfo, error)
}

// ServerSource supplies the server list and persists discovered server ids.
type ServerSource interface {
	Servers(ctx context.Context) ([]registry.ServerConfig, error)
	CacheServerID(ctx context.Context, serverURL, id string) (int, error)
}
