package monitoring

import (
	"time"

	"dataplug/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Click outcomes recorded by RecordClick.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

type PrometheusCollector struct {
	clicksTotal        *prometheus.CounterVec
	searchesTotal      *prometheus.CounterVec
	searchResults      prometheus.Histogram
	probesTotal        *prometheus.CounterVec
	probeLatency       prometheus.Histogram
	usageEventsWritten prometheus.Counter
	usageEventsFailed  prometheus.Counter
	streamsAdded       prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewPrometheusCollector registers the service metrics on reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		clicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataplug_clicks_total",
			Help: "Usage counter increments by bucket and outcome",
		}, []string{"bucket", "outcome"}),

		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataplug_searches_total",
			Help: "Directory searches by kind (browse or filtered)",
		}, []string{"kind"}),

		searchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataplug_search_results",
			Help:    "Number of streams returned per search",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
		}),

		probesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataplug_probes_total",
			Help: "Connectivity probes by scheme and reachability",
		}, []string{"scheme", "reachable"}),

		probeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataplug_probe_latency_seconds",
			Help:    "Latency of successful connectivity probes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		}),

		usageEventsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataplug_usage_events_written_total",
			Help: "Usage events persisted",
		}),

		usageEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataplug_usage_events_failed_total",
			Help: "Usage events dropped after a failed insert",
		}),

		streamsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataplug_streams_added_total",
			Help: "Streams registered through the catalog",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataplug_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dataplug_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *PrometheusCollector) RecordClick(bucket string, outcome string) {
	p.clicksTotal.WithLabelValues(bucket, outcome).Inc()
}

func (p *PrometheusCollector) RecordSearch(filtered bool, results int) {
	kind := "browse"
	if filtered {
		kind = "filtered"
	}
	p.searchesTotal.WithLabelValues(kind).Inc()
	p.searchResults.Observe(float64(results))
}

func (p *PrometheusCollector) RecordProbe(scheme string, result domain.ProbeResult) {
	reachable := "false"
	if result.Reachable {
		reachable = "true"
		if result.LatencyMS != nil {
			p.probeLatency.Observe((time.Duration(*result.LatencyMS) * time.Millisecond).Seconds())
		}
	}
	p.probesTotal.WithLabelValues(scheme, reachable).Inc()
}

func (p *PrometheusCollector) RecordUsageEvents(written, failed int) {
	p.usageEventsWritten.Add(float64(written))
	p.usageEventsFailed.Add(float64(failed))
}

func (p *PrometheusCollector) RecordStreamAdded() {
	p.streamsAdded.Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	}
	return "2xx"
}
