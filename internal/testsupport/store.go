package testsupport

import (
	"context"
	"testing"

	"embyscout/internal/config"
	"embyscout/internal/logging"
	"embyscout/internal/registry"
	"embyscout/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// MustOpenRegistry opens a store-backed registry seeded with servers and sites.
func MustOpenRegistry(t testing.TB, cfg *config.Config, servers []registry.ServerConfig, sites []registry.SiteConfig) *registry.Registry {
	t.Helper()
	reg := registry.New(MustOpenStore(t, cfg), logging.NewNop())
	ctx := context.Background()
	if servers != nil {
		if err := reg.SetServers(ctx, servers); err != nil {
			t.Fatalf("seed servers: %v", err)
		}
	}
	if sites != nil {
		if err := reg.SetSites(ctx, sites); err != nil {
			t.Fatalf("seed sites: %v", err)
		}
	}
	return reg
}
