package registry_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"embyscout/internal/registry"
	"embyscout/internal/services"
	"embyscout/internal/testsupport"
)

func newRegistry(t *testing.T) (*registry.Registry, context.Context) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return testsupport.MustOpenRegistry(t, cfg, nil, nil), context.Background()
}

func TestEmptyRegistryDefaults(t *testing.T) {
	reg, ctx := newRegistry(t)

	servers, err := reg.Servers(ctx)
	if err != nil || len(servers) != 0 {
		t.Fatalf("expected no servers, got %v err=%v", servers, err)
	}
	sites, err := reg.Sites(ctx)
	if err != nil || len(sites) != 0 {
		t.Fatalf("expected no sites, got %v err=%v", sites, err)
	}
	pos, err := reg.Position(ctx)
	if err != nil {
		t.Fatalf("Position returned error: %v", err)
	}
	if pos != registry.DefaultPosition() {
		t.Fatalf("unexpected default position: %+v", pos)
	}
}

func TestServerCRUDPreservesOrder(t *testing.T) {
	reg, ctx := newRegistry(t)

	for _, name := range []string{"A", "B", "C"} {
		if _, err := reg.AddServer(ctx, registry.ServerConfig{Name: " " + name + " ", URL: "http://" + strings.ToLower(name) + ".local/"}); err != nil {
			t.Fatalf("AddServer(%s): %v", name, err)
		}
	}
	if err := reg.UpdateServer(ctx, 1, registry.ServerConfig{Name: "B2", URL: "http://b.local", ScanPaths: []string{" /tv ", ""}}); err != nil {
		t.Fatalf("UpdateServer: %v", err)
	}
	removed, err := reg.RemoveServer(ctx, 0)
	if err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	if removed.Name != "A" {
		t.Fatalf("removed wrong server: %+v", removed)
	}

	servers, err := reg.Servers(ctx)
	if err != nil {
		t.Fatalf("Servers: %v", err)
	}
	var names []string
	for _, s := range servers {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"B2", "C"}) {
		t.Fatalf("unexpected order: %v", names)
	}
	if !reflect.DeepEqual(servers[0].ScanPaths, []string{"/tv"}) {
		t.Fatalf("scan paths not normalized: %v", servers[0].ScanPaths)
	}
	if servers[1].BaseURL() != "http://c.local" {
		t.Fatalf("unexpected base url: %q", servers[1].BaseURL())
	}
}

func TestAddRequiresNameAndURL(t *testing.T) {
	reg, ctx := newRegistry(t)
	if _, err := reg.AddServer(ctx, registry.ServerConfig{Name: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for server, got %v", err)
	}
	if _, err := reg.AddSite(ctx, registry.SiteConfig{URL: "https://x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for site, got %v", err)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	reg, ctx := newRegistry(t)
	if _, err := reg.RemoveServer(ctx, 3); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := reg.UpdateSite(ctx, -1, registry.SiteConfig{Name: "a", URL: "b"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemovingServerLeavesSiteUnbound(t *testing.T) {
	reg, ctx := newRegistry(t)
	if _, err := reg.AddServer(ctx, registry.ServerConfig{Name: "Home", URL: "http://home"}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if _, err := reg.AddSite(ctx, registry.SiteConfig{Name: "Tracker", URL: "https://tracker.example", ServerIndex: 0}); err != nil {
		t.Fatalf("AddSite: %v", err)
	}
	if _, err := reg.RemoveServer(ctx, 0); err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}

	sites, _ := reg.Sites(ctx)
	if len(sites) != 1 || sites[0].ServerIndex != 0 {
		t.Fatalf("site should be untouched: %+v", sites)
	}
	if _, err := reg.ServerForSite(ctx, sites[0]); !errors.Is(err, registry.ErrUnbound) {
		t.Fatalf("expected ErrUnbound, got %v", err)
	}
	if _, _, err := reg.Resolve(ctx, "https://tracker.example/item/1"); !errors.Is(err, registry.ErrUnbound) {
		t.Fatalf("expected ErrUnbound from Resolve, got %v", err)
	}
}

func TestNegativeServerIndexIsUnbound(t *testing.T) {
	if _, err := registry.ServerAt([]registry.ServerConfig{{Name: "a"}}, -1); !errors.Is(err, registry.ErrUnbound) {
		t.Fatalf("expected ErrUnbound, got %v", err)
	}
}

func TestMatchSite(t *testing.T) {
	sites := []registry.SiteConfig{
		{Name: "empty", URL: ""},
		{Name: "tracker", URL: "https://www.tracker.example"},
		{Name: "path", URL: "intranet/media"},
	}
	tests := []struct {
		page string
		want int
	}{
		{"https://www.tracker.example/detail/5", 1},
		{"https://tracker.example/detail/5", 1},
		{"https://cdn.www.tracker.example/x", 1},
		{"http://intranet/media/list", 2},
		{"https://other.example/", -1},
		{"not a url", -1},
	}
	for _, tt := range tests {
		if got := registry.MatchSite(sites, tt.page); got != tt.want {
			t.Fatalf("MatchSite(%q) = %d, want %d", tt.page, got, tt.want)
		}
	}
}

func TestMatchSiteNotConfigured(t *testing.T) {
	reg, ctx := newRegistry(t)
	if _, _, err := reg.MatchSite(ctx, "https://nowhere.example"); !errors.Is(err, registry.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCacheServerIDUpdatesEveryMatchingURL(t *testing.T) {
	reg, ctx := newRegistry(t)
	_ = reg.SetServers(ctx, []registry.ServerConfig{
		{Name: "a", URL: "http://emby:8096/"},
		{Name: "b", URL: "http://other"},
		{Name: "c", URL: "http://emby:8096"},
	})
	n, err := reg.CacheServerID(ctx, "http://emby:8096", "sid-1")
	if err != nil {
		t.Fatalf("CacheServerID: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updates, got %d", n)
	}
	servers, _ := reg.Servers(ctx)
	if servers[0].ServerID != "sid-1" || servers[1].ServerID != "" || servers[2].ServerID != "sid-1" {
		t.Fatalf("unexpected ids: %+v", servers)
	}
}

func TestUpdateServerKeepsCachedIDForSameURL(t *testing.T) {
	reg, ctx := newRegistry(t)
	_ = reg.SetServers(ctx, []registry.ServerConfig{{Name: "a", URL: "http://emby", ServerID: "sid"}})
	if err := reg.UpdateServer(ctx, 0, registry.ServerConfig{Name: "renamed", URL: "http://emby/"}); err != nil {
		t.Fatalf("UpdateServer: %v", err)
	}
	s, _ := reg.Server(ctx, 0)
	if s.ServerID != "sid" {
		t.Fatalf("expected cached id kept, got %+v", s)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	reg, ctx := newRegistry(t)
	if err := reg.SetPosition(ctx, registry.PanelPosition{Top: 12, Left: 640}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	pos, err := reg.Position(ctx)
	if err != nil || pos.Top != 12 || pos.Left != 640 {
		t.Fatalf("unexpected position %+v err=%v", pos, err)
	}
}

func TestMigrateCopiesLegacyKeysOnlyWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	legacyServers := `[{"name":"Old","server":"http://old","key":"k","useHeader":true}]`
	if err := st.Put(ctx, registry.LegacyServerListKey, []byte(legacyServers)); err != nil {
		t.Fatalf("seed legacy servers: %v", err)
	}
	if err := st.Put(ctx, registry.LegacySiteListKey, []byte(`[{"name":"old-site","url":"x","serverIndex":0}]`)); err != nil {
		t.Fatalf("seed legacy sites: %v", err)
	}
	if err := st.Put(ctx, registry.SiteListKey, []byte(`[]`)); err != nil {
		t.Fatalf("seed v1 sites: %v", err)
	}

	reg := registry.New(st, nil)
	migrated, err := reg.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !reflect.DeepEqual(migrated, []string{registry.ServerListKey}) {
		t.Fatalf("unexpected migrated keys: %v", migrated)
	}
	servers, _ := reg.Servers(ctx)
	if len(servers) != 1 || servers[0].Name != "Old" || !servers[0].UseHeader || servers[0].APIKey != "k" {
		t.Fatalf("unexpected migrated servers: %+v", servers)
	}
	sites, _ := reg.Sites(ctx)
	if len(sites) != 0 {
		t.Fatalf("v1 sites must not be overwritten: %+v", sites)
	}

	again, err := reg.Migrate(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("second Migrate should be a no-op, got %v err=%v", again, err)
	}
}

func TestExportImportYAML(t *testing.T) {
	reg, ctx := newRegistry(t)
	_ = reg.SetServers(ctx, []registry.ServerConfig{{Name: "Home", URL: "http://home", APIKey: "secret", ScanPaths: []string{"/movies"}}})
	_ = reg.SetSites(ctx, []registry.SiteConfig{{Name: "Tracker", URL: "https://t.example", ServerIndex: 0}})

	var redacted bytes.Buffer
	if err := reg.Export(ctx, &redacted, true); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(redacted.String(), "secret") {
		t.Fatalf("redacted export leaked key: %s", redacted.String())
	}

	var full bytes.Buffer
	if err := reg.Export(ctx, &full, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(full.String(), "api_key: secret") || !strings.Contains(full.String(), "server_index: 0") {
		t.Fatalf("unexpected export: %s", full.String())
	}

	other, ctx2 := newRegistry(t)
	snap, err := other.Import(ctx2, &full)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(snap.Servers) != 1 || len(snap.Sites) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	servers, _ := other.Servers(ctx2)
	if servers[0].APIKey != "secret" || servers[0].ScanPaths[0] != "/movies" {
		t.Fatalf("unexpected imported server: %+v", servers[0])
	}
}

func TestImportRejectsIncompleteEntries(t *testing.T) {
	reg, ctx := newRegistry(t)
	_, err := reg.Import(ctx, strings.NewReader("servers:\n  - name: nourl\n"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseScanPathsAndDefaults(t *testing.T) {
	if got := registry.ParseScanPaths(" /a, ,/b ,"); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Fatalf("unexpected paths: %v", got)
	}
	if got := (registry.ServerConfig{}).PathsOrDefault(""); !reflect.DeepEqual(got, []string{"/"}) {
		t.Fatalf("unexpected default paths: %v", got)
	}
	if got := (registry.ServerConfig{URL: "http://x/"}).Label(); got != "http://x" {
		t.Fatalf("unexpected label: %q", got)
	}
}
