package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/config"
	"embyscout/internal/daemon"
	"embyscout/internal/logging"
	"embyscout/internal/registry"
	"embyscout/internal/services/emby"
	"embyscout/internal/testsupport"
)

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *app.App) {
	t.Helper()
	a, err := app.Build(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("app.Build: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	d, err := daemon.New(a, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, a
}

func newTestServer(t *testing.T, d *daemon.Daemon) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any, dst any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	var status api.DaemonStatus
	if code := doJSON(t, http.MethodGet, "http://"+d.Address()+"/api/status", "", nil, &status); code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d", code)
	}
	if !status.Running || status.StoreDriver != "sqlite" {
		t.Fatalf("unexpected status: %+v", status)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Address() != "" {
		t.Fatal("expected listener to be closed")
	}
}

func TestSecondDaemonCannotTakeLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newTestDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	other := *cfg
	other.Paths.APIBind = ""
	second, _ := newTestDaemon(t, &other)
	err := second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestServerRoutesHideAndKeepKeys(t *testing.T) {
	d, _ := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)

	var created api.Server
	code := doJSON(t, http.MethodPost, srv.URL+"/api/servers", "", api.ServerInput{
		Name: "home", URL: "http://emby.local", APIKey: "secret", ScanPaths: []string{"/movies"},
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if created.Index != 0 || !created.HasAPIKey || created.URL != "http://emby.local" {
		t.Fatalf("unexpected created server: %+v", created)
	}

	var updated api.Server
	code = doJSON(t, http.MethodPut, srv.URL+"/api/servers/0", "", api.ServerInput{Name: "home", URL: "http://emby.local:8096"}, &updated)
	if code != http.StatusOK || !updated.HasAPIKey {
		t.Fatalf("expected key to survive update, got %d %+v", code, updated)
	}

	var missing api.ErrorResponse
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/servers", "", api.ServerInput{Name: "nourl"}, &missing); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", code)
	}
	if missing.Kind != "validation" {
		t.Fatalf("expected validation kind, got %+v", missing)
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/servers/5", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown index, got %d", code)
	}
	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/servers/0", "", nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", code)
	}
	var list api.ServerListResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/servers", "", nil, &list)
	if len(list.Servers) != 0 {
		t.Fatalf("expected empty list, got %+v", list.Servers)
	}
}

func TestSiteRoutesReportUnbound(t *testing.T) {
	d, a := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)
	ctx := context.Background()
	if _, err := a.Registry.AddServer(ctx, registry.ServerConfig{Name: "home", URL: "http://emby.local"}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	var site api.Site
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sites", "", api.SiteInput{Name: "db", URL: "https://movie.example", ServerIndex: 0}, &site); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if site.Server != "home" {
		t.Fatalf("expected bound server, got %+v", site)
	}

	if _, err := a.Registry.RemoveServer(ctx, 0); err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	var list api.SiteListResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/sites", "", nil, &list)
	if len(list.Sites) != 1 || list.Sites[0].Server != "unbound" {
		t.Fatalf("expected dangling site to be unbound, got %+v", list.Sites)
	}
}

func TestSearchAndCheckRoutes(t *testing.T) {
	fake := testsupport.NewFakeEmby(t)
	fake.AddItems(emby.Item{ID: "1", Name: "Dune", Type: "Movie", ProductionYear: 2021})
	d, a := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)
	ctx := context.Background()
	if _, err := a.Registry.AddServer(ctx, registry.ServerConfig{Name: "home", URL: fake.URL()}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if _, err := a.Registry.AddSite(ctx, registry.SiteConfig{Name: "db", URL: "https://movie.example", ServerIndex: 0}); err != nil {
		t.Fatalf("AddSite: %v", err)
	}

	var search api.SearchResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/search?q=Dune", "", nil, &search); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(search.Blocks) != 1 || search.Blocks[0].State != "results" || len(search.Blocks[0].Hits) != 1 {
		t.Fatalf("unexpected search response: %+v", search)
	}
	if !strings.Contains(search.Blocks[0].Hits[0].OpenURL, "serverId=fake-server-id") {
		t.Fatalf("expected server id in open url, got %q", search.Blocks[0].Hits[0].OpenURL)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/search?q=", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty keyword, got %d", code)
	}

	var check api.CheckResponse
	doJSON(t, http.MethodGet, srv.URL+"/api/check?title=Dune&url=https://movie.example/subject/1", "", nil, &check)
	if check.Status != "in library" || check.Site != "db" {
		t.Fatalf("unexpected check: %+v", check)
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/check?title=Arrival&url=https://elsewhere.example/", "", nil, &check)
	if check.Status != "not configured" {
		t.Fatalf("expected not configured, got %+v", check)
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/check?title=Arrival&server=0", "", nil, &check)
	if check.Status != "not in library" {
		t.Fatalf("expected not in library, got %+v", check)
	}
}

func TestScanJobRunsAndResearches(t *testing.T) {
	fake := testsupport.NewFakeEmby(t)
	fake.AddItems(emby.Item{ID: "1", Name: "Dune", Type: "Movie"})
	d, a := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)
	if _, err := a.Registry.AddServer(context.Background(), registry.ServerConfig{
		Name: "home", URL: fake.URL(), ScanPaths: []string{"/movies", "/tv"},
	}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	var job api.ScanJob
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/scan", "", api.ScanRequest{Server: 0, Keyword: "Dune"}, &job); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if job.ID == "" || job.State != "running" {
		t.Fatalf("unexpected job: %+v", job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for job.State == "running" && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		doJSON(t, http.MethodGet, srv.URL+"/api/scan/"+job.ID, "", nil, &job)
	}
	if job.State != "completed" {
		t.Fatalf("expected completed job, got %+v", job)
	}
	if strings.Join(job.Completed, ",") != "/movies,/tv" {
		t.Fatalf("unexpected completed paths: %v", job.Completed)
	}
	if got := strings.Join(fake.Refreshes(), ","); got != "/movies,/tv" {
		t.Fatalf("unexpected refreshes: %s", got)
	}
	if job.Research == nil || len(job.Research.Blocks) != 1 || job.Research.Blocks[0].State != "results" {
		t.Fatalf("expected search re-run after scan, got %+v", job.Research)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/scan/nope", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", code)
	}
}

func TestScanJobStopsOnRefreshFailure(t *testing.T) {
	fake := testsupport.NewFakeEmby(t)
	fake.FailPath("/Library/Refresh", http.StatusInternalServerError)
	d, a := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)
	if _, err := a.Registry.AddServer(context.Background(), registry.ServerConfig{
		Name: "home", URL: fake.URL(), ScanPaths: []string{"/movies", "/tv"},
	}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	var job api.ScanJob
	doJSON(t, http.MethodPost, srv.URL+"/api/scan", "", api.ScanRequest{Server: 0}, &job)
	deadline := time.Now().Add(5 * time.Second)
	for job.State == "running" && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		doJSON(t, http.MethodGet, srv.URL+"/api/scan/"+job.ID, "", nil, &job)
	}
	if job.State != "failed" || job.Error == "" {
		t.Fatalf("expected failed job, got %+v", job)
	}
	if len(job.Completed) != 0 {
		t.Fatalf("expected no completed paths, got %v", job.Completed)
	}
	if n := fake.CountPath("/Library/Refresh"); n != 1 {
		t.Fatalf("expected a single refresh attempt, got %d", n)
	}
}

func TestPositionRoutes(t *testing.T) {
	d, _ := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)

	var pos api.Position
	doJSON(t, http.MethodGet, srv.URL+"/api/position", "", nil, &pos)
	if pos.Top != 100 || pos.Left != 100 {
		t.Fatalf("expected default position, got %+v", pos)
	}
	doJSON(t, http.MethodPut, srv.URL+"/api/position", "", api.Position{Top: 12, Left: 34}, nil)
	doJSON(t, http.MethodGet, srv.URL+"/api/position", "", nil, &pos)
	if pos.Top != 12 || pos.Left != 34 {
		t.Fatalf("expected stored position, got %+v", pos)
	}
}

func TestPageScanRejectsLocalPaths(t *testing.T) {
	d, _ := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/page/scan", "", api.PageScanRequest{URL: "/etc/hostname"}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for local path, got %d", code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cases := []struct {
		name       string
		configured string
	}{
		{name: "plain", configured: "s3cret"},
		{name: "bcrypt", configured: string(hash)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newTestDaemon(t, testsupport.NewConfig(t, testsupport.WithAPIToken(tc.configured)))
			srv := newTestServer(t, d)

			if code := doJSON(t, http.MethodGet, srv.URL+"/api/status", "", nil, nil); code != http.StatusUnauthorized {
				t.Fatalf("expected 401 without token, got %d", code)
			}
			if code := doJSON(t, http.MethodGet, srv.URL+"/api/status", "wrong", nil, nil); code != http.StatusUnauthorized {
				t.Fatalf("expected 401 with wrong token, got %d", code)
			}
			if code := doJSON(t, http.MethodGet, srv.URL+"/api/status", "s3cret", nil, nil); code != http.StatusOK {
				t.Fatalf("expected 200 with token, got %d", code)
			}
		})
	}
}

func TestRequestIDAndMetrics(t *testing.T) {
	d, _ := newTestDaemon(t, testsupport.NewConfig(t))
	srv := newTestServer(t, d)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id echo, got %q", got)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("unexpected metrics response %d", resp.StatusCode)
	}
}
