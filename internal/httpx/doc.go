// Package httpx holds the shared HTTP plumbing: a tuned default client, a
// per-host concurrency limiter, and a single-retry helper for fetching host
// web pages. Media-server calls go through the limiter but are never retried.
package httpx
