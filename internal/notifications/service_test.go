package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"embyscout/internal/config"
	"embyscout/internal/notifications"
	"embyscout/internal/scan"
)

type capture struct {
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func newNtfy(t *testing.T) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		c.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, c
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventScanCompleted, notifications.Payload{"server": "home"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "scan completed",
			event:         notifications.EventScanCompleted,
			payload:       notifications.Payload{"server": "home", "paths": []string{"/movies", "/tv"}},
			expectTitle:   "embyscout - Scan Complete",
			expectMessage: "Library scan finished on home: /movies, /tv",
			expectTags:    "embyscout,scan,completed",
		},
		{
			name:           "scan failed",
			event:          notifications.EventScanFailed,
			payload:        notifications.Payload{"server": "home", "path": "/tv", "error": "server returned 500"},
			expectTitle:    "embyscout - Scan Failed",
			expectMessage:  "Scan request failed on home (/tv): server returned 500",
			expectTags:     "embyscout,scan,failed",
			expectPriority: "high",
		},
		{
			name:          "title missing",
			event:         notifications.EventTitleMissing,
			payload:       notifications.Payload{"title": "Dune", "server": "home", "url": "https://movies.example/1"},
			expectTitle:   "embyscout - Not In Library",
			expectMessage: "Dune is not on home\nhttps://movies.example/1",
			expectTags:    "embyscout,library,missing",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, captured := newNtfy(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.ScanCompleted = true
			cfg.Notifications.ScanFailed = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursMutedEvents(t *testing.T) {
	server, captured := newNtfy(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ScanCompleted = false
	cfg.Notifications.ScanFailed = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{notifications.EventScanCompleted, notifications.EventScanFailed, notifications.Event("unknown")} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{}); err != nil {
			t.Fatalf("expected no error for %s, got %v", event, err)
		}
	}
	if captured.calls != 0 {
		t.Fatalf("expected no ntfy calls, got %d", captured.calls)
	}
}

func TestScanNotifierReportsFailedPath(t *testing.T) {
	server, captured := newNtfy(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ScanFailed = true

	notifier := notifications.ScanNotifier{Service: notifications.NewService(&cfg)}
	err := &scan.PathError{Path: "/tv", Err: errors.New("boom")}
	if nerr := notifier.ScanFinished(context.Background(), "home", []string{"/movies", "/tv", "/anime"}, err); nerr != nil {
		t.Fatalf("ScanFinished: %v", nerr)
	}
	if captured.body != "Scan request failed on home (/tv): scan /tv: boom" {
		t.Fatalf("unexpected body %q", captured.body)
	}
}
