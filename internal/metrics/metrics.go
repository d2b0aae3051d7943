// Package metrics records per-run counters for ocd-events.
//
// Metrics live in a private Prometheus registry. A run is a one-shot CLI
// invocation, so instead of serving /metrics the registry is written to a
// node_exporter textfile when the walk completes. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ocd_events"

// Detail request outcomes
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
)

// Endpoints used as the endpoint label
const (
	EndpointListing = "listing"
	EndpointDetail  = "detail"
)

type Metrics struct {
	registry *prometheus.Registry

	pagesFetched   prometheus.Counter
	detailRequests *prometheus.CounterVec
	eventsEmitted  prometheus.Counter
	swapsSkipped   prometheus.Counter
	requestDur     *prometheus.HistogramVec
	lastSuccessTS  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.pagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Listing pages fetched",
	})
	m.detailRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detail_requests_total",
		Help:      "Detail resource requests by outcome",
	}, []string{"outcome"})
	m.eventsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_emitted_total",
		Help:      "Event records emitted",
	})
	m.swapsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_swaps_skipped_total",
		Help:      "Source lists too short for the compatibility swap",
	})
	m.requestDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Upstream request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last completed walk",
	})

	m.registry.MustRegister(
		m.pagesFetched, m.detailRequests, m.eventsEmitted,
		m.swapsSkipped, m.requestDur, m.lastSuccessTS,
	)
	return m
}

func (m *Metrics) PageFetched() {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
}

func (m *Metrics) DetailRequest(outcome string) {
	if m == nil {
		return
	}
	m.detailRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EventEmitted() {
	if m == nil {
		return
	}
	m.eventsEmitted.Inc()
}

func (m *Metrics) SwapSkipped() {
	if m == nil {
		return
	}
	m.swapsSkipped.Inc()
}

// ObserveRequest records how long a request to endpoint took
func (m *Metrics) ObserveRequest(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDur.WithLabelValues(endpoint).Observe(d.Seconds())
}

// WalkCompleted stamps the last-success gauge
func (m *Metrics) WalkCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessTS.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry as a Gatherer
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
