// Package daemon runs the long-lived embyscout process behind a local HTTP
// API.
//
// The daemon holds a flock so that only one instance serves a data directory,
// exposes search, in-library checks, scan jobs, and the stored server, site,
// and panel records over JSON, and publishes Prometheus metrics. Scan jobs run
// in the background and are polled by id; each finished path can re-run the
// originating search so front-ends see newly scanned items.
package daemon
