package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/grandgraph/pkg/observability"
)

const namespace = "grandgraph"

// Metrics implements the observability hooks on top of Prometheus
// collectors. Install routes the process-wide hooks to it.
type Metrics struct {
	resolveTotal    *prometheus.CounterVec
	loadTotal       *prometheus.CounterVec
	loadDuration    prometheus.Histogram
	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	renderDuration  *prometheus.HistogramVec
	renderInflight  *prometheus.GaugeVec
	cacheEvents     *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Query resolutions by result.",
		}, []string{"result"}),
		loadTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_total",
			Help:      "Graph loads by winning origin.",
		}, []string{"origin", "result"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to load a graph through the fallback chain.",
			Buckets:   prometheus.DefBuckets,
		}),
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_stage_total",
			Help:      "Fallback stage attempts by stage and result.",
		}, []string{"stage", "result"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fallback_stage_duration_seconds",
			Help:      "Duration of one fallback stage attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time to render one artifact.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"format", "result"}),
		renderInflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_inflight",
			Help:      "Renders in progress.",
		}, []string{"format"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes by entry kind.",
		}, []string{"kind", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by entry kind.",
		}, []string{"kind"}),
		upstreamTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outgoing API requests by host and status.",
		}, []string{"host", "status"}),
		upstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Outgoing API requests that failed before a response.",
		}, []string{"host"}),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Served HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Install makes m the process-wide hook implementation.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetFetchHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnResolveComplete(_ context.Context, _, _ string, _ time.Duration, err error) {
	m.resolveTotal.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) OnLoadComplete(_ context.Context, _, origin string, _ int, d time.Duration, err error) {
	if origin == "" {
		origin = "none"
	}
	m.loadTotal.WithLabelValues(origin, result(err)).Inc()
	m.loadDuration.Observe(d.Seconds())
}

func (m *Metrics) OnRenderStart(_ context.Context, format string) {
	m.renderInflight.WithLabelValues(format).Inc()
}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	m.renderInflight.WithLabelValues(format).Dec()
	m.renderDuration.WithLabelValues(format, result(err)).Observe(d.Seconds())
}

func (m *Metrics) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	m.stageTotal.WithLabelValues(stage, result(err)).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.cacheEvents.WithLabelValues(kind, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, kind string, size int) {
	m.cacheEvents.WithLabelValues(kind, "set").Inc()
	m.cacheBytes.WithLabelValues(kind).Add(float64(size))
}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, _ time.Duration) {
	m.upstreamTotal.WithLabelValues(host, statusLabel(status)).Inc()
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.upstreamErrors.WithLabelValues(host).Inc()
}

func (m *Metrics) observeRequest(method, route string, status int, d time.Duration) {
	m.requestTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.FetchHooks    = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
