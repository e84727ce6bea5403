package prometheus

import (
	"strconv"
	"time"
)

// Outcome labels shared by the recording helpers.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Bucket layouts.
var (
	HTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	FetchDurationBuckets   = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	InsightDurationBuckets = []float64{.5, 1, 2, 5, 10, 20, 30, 60}
)

// AppMetrics holds every metric the service exports.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Dataset
	FetchTotal         CounterVec
	FetchDuration      HistogramVec
	StaleResponses     CounterVec
	FeatureCount       GaugeVec
	LastRefreshSeconds GaugeVec
	PeerRefreshTotal   CounterVec

	// Distribution
	ArchiveTotal CounterVec
	PublishTotal CounterVec
	CacheTotal   CounterVec

	// Sessions
	ActiveSessions GaugeVec
	SessionEvents  CounterVec

	// Insight
	InsightTotal    CounterVec
	InsightDuration HistogramVec
}

// NewAppMetrics registers the application metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "HTTP requests by route and status", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", HTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.FetchTotal = collector.RegisterCounter("dataset_fetch_total", "GeoJSON fetches by resource and outcome", "resource", "outcome")
	m.FetchDuration = collector.RegisterHistogram("dataset_fetch_duration_seconds", "GeoJSON fetch duration", FetchDurationBuckets, "resource")
	m.StaleResponses = collector.RegisterCounter("dataset_stale_responses_total", "Responses discarded because a newer request was issued", "resource")
	m.FeatureCount = collector.RegisterGauge("dataset_features", "Features in the current snapshot", "resource")
	m.LastRefreshSeconds = collector.RegisterGauge("dataset_last_refresh_timestamp_seconds", "Unix time of the last applied refresh", "resource")
	m.PeerRefreshTotal = collector.RegisterCounter("dataset_peer_refresh_total", "Refresh events received from peer replicas", "action")

	m.ArchiveTotal = collector.RegisterCounter("snapshot_archive_total", "Snapshot archive attempts", "resource", "outcome")
	m.PublishTotal = collector.RegisterCounter("snapshot_publish_total", "Refresh event publications", "outcome")
	m.CacheTotal = collector.RegisterCounter("snapshot_cache_total", "Snapshot cache operations", "operation", "outcome")

	m.ActiveSessions = collector.RegisterGauge("sessions_active", "Live dashboard sessions")
	m.SessionEvents = collector.RegisterCounter("session_events_total", "Dashboard events applied to sessions", "type")

	m.InsightTotal = collector.RegisterCounter("insight_requests_total", "AI summary requests by outcome", "outcome")
	m.InsightDuration = collector.RegisterHistogram("insight_duration_seconds", "AI summary latency", InsightDurationBuckets)

	return m
}

// NewNopAppMetrics returns metrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   noopCounterVec{},
		HTTPRequestDuration: noopHistogramVec{},
		HTTPActiveRequests:  noopGaugeVec{},
		FetchTotal:          noopCounterVec{},
		FetchDuration:       noopHistogramVec{},
		StaleResponses:      noopCounterVec{},
		FeatureCount:        noopGaugeVec{},
		LastRefreshSeconds:  noopGaugeVec{},
		PeerRefreshTotal:    noopCounterVec{},
		ArchiveTotal:        noopCounterVec{},
		PublishTotal:        noopCounterVec{},
		CacheTotal:          noopCounterVec{},
		ActiveSessions:      noopGaugeVec{},
		SessionEvents:       noopCounterVec{},
		InsightTotal:        noopCounterVec{},
		InsightDuration:     noopHistogramVec{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// recording helpers
// ─────────────────────────────────────────────────────────────────────────────

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordHTTPRequest records one finished request.  path is the route
// template, never the raw URL.
func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *AppMetrics) TrackInFlight(method string) func() {
	g := m.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

// ObserveFetch records a GeoJSON fetch.
func (m *AppMetrics) ObserveFetch(resource string, d time.Duration, err error) {
	m.FetchTotal.WithLabelValues(resource, outcome(err)).Inc()
	m.FetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// IncStale counts a discarded out-of-order response.
func (m *AppMetrics) IncStale(resource string) {
	m.StaleResponses.WithLabelValues(resource).Inc()
}

// SetFeatureCount updates the snapshot gauges after an applied refresh.
func (m *AppMetrics) SetFeatureCount(resource string, n int, at time.Time) {
	m.FeatureCount.WithLabelValues(resource).Set(float64(n))
	m.LastRefreshSeconds.WithLabelValues(resource).Set(float64(at.Unix()))
}

// IncPeerRefresh counts a peer event; action is "refresh" or "ignored".
func (m *AppMetrics) IncPeerRefresh(action string) {
	m.PeerRefreshTotal.WithLabelValues(action).Inc()
}

// RecordArchive records a snapshot upload.  skipped marks a lease held by
// another replica.
func (m *AppMetrics) RecordArchive(resource string, skipped bool, err error) {
	o := outcome(err)
	if skipped && err == nil {
		o = OutcomeSkipped
	}
	m.ArchiveTotal.WithLabelValues(resource, o).Inc()
}

// RecordPublish records a refresh event publication.
func (m *AppMetrics) RecordPublish(skipped bool, err error) {
	o := outcome(err)
	if skipped && err == nil {
		o = OutcomeSkipped
	}
	m.PublishTotal.WithLabelValues(o).Inc()
}

// RecordCache records a snapshot cache save or load.  A miss is "miss".
func (m *AppMetrics) RecordCache(operation string, miss bool, err error) {
	o := outcome(err)
	if miss {
		o = "miss"
	}
	m.CacheTotal.WithLabelValues(operation, o).Inc()
}

// SetActiveSessions updates the live session gauge.
func (m *AppMetrics) SetActiveSessions(n int) {
	m.ActiveSessions.WithLabelValues().Set(float64(n))
}

// IncSessionEvent counts an applied dashboard event.
func (m *AppMetrics) IncSessionEvent(eventType string) {
	m.SessionEvents.WithLabelValues(eventType).Inc()
}

// ObserveInsight records an AI summary request.  It matches the Observe hook
// of the insight service.
func (m *AppMetrics) ObserveInsight(result string, d time.Duration) {
	m.InsightTotal.WithLabelValues(result).Inc()
	m.InsightDuration.WithLabelValues().Observe(d.Seconds())
}
