// Package metrics exposes Prometheus counters and histograms for media-server
// traffic, library checks, rescans, and page scanning.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"embyscout/internal/services"
	"embyscout/internal/textutil"
)

const namespace = "embyscout"

// Recorder owns a private registry so tests and multiple daemons never share
// global collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searches     *prometheus.CounterVec
	searchTime   *prometheus.HistogramVec
	checks       *prometheus.CounterVec
	scans        *prometheus.CounterVec
	pageElements *prometheus.CounterVec
	pageFetches  *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Per-server search requests by outcome.",
		}, []string{"server", "outcome"}),
		searchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Per-server search latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_checks_total",
			Help:      "In-library checks by resulting status.",
		}, []string{"status"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_paths_total",
			Help:      "Library refresh requests by outcome.",
		}, []string{"server", "outcome"}),
		pageElements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_elements_total",
			Help:      "Detected page elements by kind.",
		}, []string{"kind"}),
		pageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Host page fetches by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		r.searches, r.searchTime, r.checks, r.scans, r.pageElements, r.pageFetches,
		prometheus.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveSearch records one per-server search. Server names are reduced to
// label-safe tokens.
func (r *Recorder) ObserveSearch(server string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	label := textutil.SanitizeToken(server)
	r.searches.WithLabelValues(label, services.Classify(err)).Inc()
	r.searchTime.WithLabelValues(label).Observe(elapsed.Seconds())
}

// ObserveCheck records the status label of an in-library check.
func (r *Recorder) ObserveCheck(status string) {
	if r == nil {
		return
	}
	r.checks.WithLabelValues(status).Inc()
}

// ObserveScan records one refresh request.
func (r *Recorder) ObserveScan(server string, err error) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(textutil.SanitizeToken(server), services.Classify(err)).Inc()
}

// ObservePageElement counts a newly detected page element.
func (r *Recorder) ObservePageElement(kind string) {
	if r == nil {
		return
	}
	r.pageElements.WithLabelValues(kind).Inc()
}

// ObservePageFetch records a host page fetch.
func (r *Recorder) ObservePageFetch(err error) {
	if r == nil {
		return
	}
	r.pageFetches.WithLabelValues(services.Classify(err)).Inc()
}
