package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"embyscout/internal/config"
	"embyscout/internal/httpx"
)

const userAgent = "embyscout/0.1.0"

// Event enumerates notification types.
type Event string

const (
	EventScanCompleted Event = "scan_completed"
	EventScanFailed    Event = "scan_failed"
	EventTitleMissing  Event = "title_missing"
	EventTest          Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   httpx.WithTimeout(timeout),
		muted: map[Event]bool{
			EventScanCompleted: !cfg.Notifications.ScanCompleted,
			EventScanFailed:    !cfg.Notifications.ScanFailed,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	muted    map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.muted[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventScanCompleted:
		return message{
			title: "embyscout - Scan Complete",
			body:  fmt.Sprintf("Library scan finished on %s: %s", field(payload, "server"), field(payload, "paths")),
			tags:  []string{"embyscout", "scan", "completed"},
		}, true
	case EventScanFailed:
		return message{
			title:    "embyscout - Scan Failed",
			body:     fmt.Sprintf("Scan request failed on %s (%s): %s", field(payload, "server"), field(payload, "path"), field(payload, "error")),
			tags:     []string{"embyscout", "scan", "failed"},
			priority: "high",
		}, true
	case EventTitleMissing:
		return message{
			title: "embyscout - Not In Library",
			body:  fmt.Sprintf("%s is not on %s\n%s", field(payload, "title"), field(payload, "server"), field(payload, "url")),
			tags:  []string{"embyscout", "library", "missing"},
		}, true
	case EventTest:
		return message{
			title:    "embyscout - Test",
			body:     "Notification system test",
			tags:     []string{"embyscout", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func field(payload Payload, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return "unknown"
	}
	if list, ok := v.([]string); ok {
		return strings.Join(list, ", ")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
