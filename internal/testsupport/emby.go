package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"embyscout/internal/services/emby"
)

// RecordedRequest captures one request received by FakeEmby.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Token  string
}

// FakeEmby is an httptest-backed Emby server with canned responses.
type FakeEmby struct {
	Server *httptest.Server

	mu          sync.Mutex
	items       []emby.Item
	searchFunc  func(term string) []emby.Item
	episodes    map[string][]emby.Item
	shows       map[string]emby.Show
	serverID    string
	apiKey      string
	failPaths   map[string]int
	requests    []RecordedRequest
	refreshPath []string
}

// NewFakeEmby starts a fake server and registers cleanup.
func NewFakeEmby(t testing.TB) *FakeEmby {
	t.Helper()
	f := &FakeEmby{
		episodes:  map[string][]emby.Item{},
		shows:     map[string]emby.Show{},
		serverID:  "fake-server-id",
		failPaths: map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint returns credentials for this server.
func (f *FakeEmby) Endpoint(useHeader bool) emby.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return emby.Endpoint{BaseURL: f.Server.URL, APIKey: f.apiKey, UseHeader: useHeader}
}

// URL is the server base URL.
func (f *FakeEmby) URL() string { return f.Server.URL }

// SetAPIKey makes the server reject requests without this key.
func (f *FakeEmby) SetAPIKey(key string) {
	f.mu.Lock()
	f.apiKey = key
	f.mu.Unlock()
}

// SetServerID sets the Id reported by /emby/System/Info. Empty omits it.
func (f *FakeEmby) SetServerID(id string) {
	f.mu.Lock()
	f.serverID = id
	f.mu.Unlock()
}

// AddItems registers library items. Search matches a case-insensitive
// substring of Name or OriginalTitle unless SetSearch overrides it.
func (f *FakeEmby) AddItems(items ...emby.Item) {
	f.mu.Lock()
	f.items = append(f.items, items...)
	f.mu.Unlock()
}

// SetSearch overrides search results.
func (f *FakeEmby) SetSearch(fn func(term string) []emby.Item) {
	f.mu.Lock()
	f.searchFunc = fn
	f.mu.Unlock()
}

// SetSeries registers the show record and its episodes.
func (f *FakeEmby) SetSeries(show emby.Show, episodes ...emby.Item) {
	f.mu.Lock()
	f.shows[show.ID] = show
	f.episodes[show.ID] = episodes
	f.mu.Unlock()
}

// FailPath makes requests whose path has the given suffix answer status.
func (f *FakeEmby) FailPath(suffix string, status int) {
	f.mu.Lock()
	f.failPaths[suffix] = status
	f.mu.Unlock()
}

// Requests returns a copy of every request received.
func (f *FakeEmby) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CountPath counts requests whose path ends with suffix.
func (f *FakeEmby) CountPath(suffix string) int {
	n := 0
	for _, r := range f.Requests() {
		if strings.HasSuffix(r.Path, suffix) {
			n++
		}
	}
	return n
}

// Refreshes returns the library paths refreshed so far, in order.
func (f *FakeEmby) Refreshes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshPath...)
}

func (f *FakeEmby) handle(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Emby-Token")
	if token == "" {
		token = r.URL.Query().Get("api_key")
	}

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Token: token})
	apiKey := f.apiKey
	status := 0
	for suffix, code := range f.failPaths {
		if strings.HasSuffix(r.URL.Path, suffix) {
			status = code
		}
	}
	f.mu.Unlock()

	if apiKey != "" && token != apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/emby/System/Info":
		f.mu.Lock()
		id := f.serverID
		f.mu.Unlock()
		writeFakeJSON(w, emby.SystemInfo{ID: id, ServerName: "fake"})
	case path == "/emby/Items":
		writeFakeJSON(w, emby.ItemsResponse{Items: f.search(r.URL.Query().Get("SearchTerm"))})
	case path == "/emby/Library/Refresh" && r.Method == http.MethodPost:
		f.mu.Lock()
		f.refreshPath = append(f.refreshPath, r.URL.Query().Get("path"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(path, "/emby/Shows/") && strings.HasSuffix(path, "/Episodes"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/emby/Shows/"), "/Episodes")
		f.mu.Lock()
		eps := f.episodes[id]
		f.mu.Unlock()
		if len(eps) > 1 {
			eps = eps[:1]
		}
		writeFakeJSON(w, emby.ItemsResponse{Items: eps, TotalRecordCount: len(eps)})
	case strings.HasPrefix(path, "/emby/Shows/"):
		id := strings.TrimPrefix(path, "/emby/Shows/")
		f.mu.Lock()
		show, ok := f.shows[id]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeFakeJSON(w, show)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeEmby) search(term string) []emby.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchFunc != nil {
		return f.searchFunc(term)
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	var out []emby.Item
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Name), needle) || strings.Contains(strings.ToLower(item.OriginalTitle), needle) {
			out = append(out, item)
		}
	}
	return out
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
