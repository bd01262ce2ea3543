package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"embyscout/internal/services"
	"embyscout/internal/services/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearchMultiSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "key" || r.URL.Query().Get("query") != "流浪地球" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("language") != "zh-CN" {
			t.Errorf("expected language parameter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":535167,"title":"流浪地球","media_type":"movie"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "zh-CN")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.SearchMulti(context.Background(), "流浪地球")
	if err != nil {
		t.Fatalf("SearchMulti returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 535167 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestSearchMultiHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	if _, err := client.SearchMulti(context.Background(), "fail"); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestSearchMultiEmptyQuery(t *testing.T) {
	client, _ := tmdb.New("key", "https://example.com", "")
	if _, err := client.SearchMulti(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// newTMDBServer answers movie/tv details; ids listed in movies or shows exist.
func newTMDBServer(t *testing.T, searchID int64, movies, shows map[int64]bool) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case path == "/search/multi":
			if searchID == 0 {
				_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":` + strconv.FormatInt(searchID, 10) + `,"name":"Found"}]}`))
		case strings.HasPrefix(path, "/movie/"):
			if movies[parseID(path)] {
				_, _ = w.Write([]byte(`{"id":1,"title":"Movie"}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		case strings.HasPrefix(path, "/tv/"):
			if shows[parseID(path)] {
				_, _ = w.Write([]byte(`{"id":1,"name":"Show"}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestResolveType(t *testing.T) {
	client := newTMDBServer(t, 0, map[int64]bool{10: true}, map[int64]bool{20: true})
	tests := []struct {
		id   int64
		want string
	}{
		{10, tmdb.MediaMovie},
		{20, tmdb.MediaTV},
		{30, tmdb.MediaUnknown},
	}
	for _, tt := range tests {
		got, err := tmdb.ResolveType(context.Background(), client, tt.id)
		if err != nil {
			t.Fatalf("ResolveType(%d) returned error: %v", tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("ResolveType(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestLookupAndHDHiveURL(t *testing.T) {
	client := newTMDBServer(t, 20, nil, map[int64]bool{20: true})
	match, ok, err := tmdb.Lookup(context.Background(), client, "Found")
	if err != nil || !ok {
		t.Fatalf("Lookup ok=%v err=%v", ok, err)
	}
	if match.ID != 20 || match.MediaType != tmdb.MediaTV || match.Title != "Found" {
		t.Fatalf("unexpected match: %+v", match)
	}
	if got := tmdb.HDHiveURL("https://hdhive.com/", match); got != "https://hdhive.com/tmdb/tv/20" {
		t.Fatalf("unexpected hdhive url: %s", got)
	}
	if got := tmdb.HDHiveURL("", tmdb.Match{ID: 5, MediaType: tmdb.MediaUnknown}); got != "" {
		t.Fatalf("unknown type must not produce a link, got %s", got)
	}
}

func TestLookupNoResults(t *testing.T) {
	client := newTMDBServer(t, 0, nil, nil)
	if _, ok, err := tmdb.Lookup(context.Background(), client, "nothing"); err != nil || ok {
		t.Fatalf("expected no match, ok=%v err=%v", ok, err)
	}
}

func parseID(path string) int64 {
	id, _ := strconv.ParseInt(path[strings.LastIndex(path, "/")+1:], 10, 64)
	return id
}
