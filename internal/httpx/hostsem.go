package httpx

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// HostSemaphore limits concurrent requests per scheme+host.
//
//	release, err := sem.Acquire(ctx, host)
//	if err != nil { return err }
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// NewHostSemaphore creates a limiter allowing concurrency requests per host.
func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{sems: make(map[string]chan struct{}), limit: concurrency}
}

// Acquire blocks until a slot is free for host or ctx ends.
func (h *HostSemaphore) Acquire(ctx context.Context, host string) (func(), error) {
	sem := h.semFor(host)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HostSemaphore) semFor(host string) chan struct{} {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[host]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[host] = s
	}
	return s
}

// Doer is the subset of *http.Client used by API clients.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LimitedDoer applies a HostSemaphore around every request. The slot is held
// until the response headers arrive.
type LimitedDoer struct {
	Next Doer
	Sem  *HostSemaphore
}

// Do implements Doer.
func (d LimitedDoer) Do(req *http.Request) (*http.Response, error) {
	next := d.Next
	if next == nil {
		next = Default()
	}
	if d.Sem == nil {
		return next.Do(req)
	}
	release, err := d.Sem.Acquire(req.Context(), req.URL.Scheme+"://"+req.URL.Host)
	if err != nil {
		return nil, err
	}
	defer release()
	return next.Do(req)
}
