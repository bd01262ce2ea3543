package registry

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is the portable form of every registry record.
type Snapshot struct {
	Servers  []ServerConfig `yaml:"servers"`
	Sites    []SiteConfig   `yaml:"sites"`
	Position *PanelPosition `yaml:"position,omitempty"`
}

// Snapshot reads all records. API keys are blanked when redact is set.
func (r *Registry) Snapshot(ctx context.Context, redact bool) (Snapshot, error) {
	servers, err := r.Servers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sites, err := r.Sites(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	pos, err := r.Position(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if redact {
		for i := range servers {
			servers[i].APIKey = ""
		}
	}
	return Snapshot{Servers: servers, Sites: sites, Position: &pos}, nil
}

// Export writes the registry as YAML.
func (r *Registry) Export(ctx context.Context, w io.Writer, redact bool) error {
	snap, err := r.Snapshot(ctx, redact)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode registry yaml: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML snapshot and replaces the server and site lists. The
// panel position is replaced only when the snapshot carries one.
func (r *Registry) Import(ctx context.Context, rd io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(rd).Decode(&snap); err != nil && err != io.EOF {
		return Snapshot{}, fmt.Errorf("decode registry yaml: %w", err)
	}
	servers := make([]ServerConfig, 0, len(snap.Servers))
	for i, server := range snap.Servers {
		server = normalizeServer(server)
		if err := validateServer(server); err != nil {
			return Snapshot{}, fmt.Errorf("servers[%d]: %w", i, err)
		}
		servers = append(servers, server)
	}
	sites := make([]SiteConfig, 0, len(snap.Sites))
	for i, site := range snap.Sites {
		site = normalizeSite(site)
		if err := validateSite(site); err != nil {
			return Snapshot{}, fmt.Errorf("sites[%d]: %w", i, err)
		}
		sites = append(sites, site)
	}
	if err := r.SetServers(ctx, servers); err != nil {
		return Snapshot{}, err
	}
	if err := r.SetSites(ctx, sites); err != nil {
		return Snapshot{}, err
	}
	if snap.Position != nil {
		if err := r.SetPosition(ctx, *snap.Position); err != nil {
			return Snapshot{}, err
		}
	}
	snap.Servers, snap.Sites = servers, sites
	return snap, nil
}
