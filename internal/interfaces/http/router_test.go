package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/application/dashboard"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/prometheus"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/handlers"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/middleware"
	"github.com/sigtopo/coop-driouch/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, limiter middleware.RateLimiter) (*gin.Engine, *testutil.MockLogger) {
	t.Helper()
	store := feature.NewStore()
	col, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)
	require.NoError(t, store.SetFeatures(store.Begin(feature.ResourceFeatures), col))

	logger := testutil.NewMockLogger()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "coopmap"}, logger)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	mgr := dashboard.NewManager(store, dashboard.Config{}, logger)

	r := NewRouter(RouterConfig{
		HealthHandler:  handlers.NewHealthHandler("test", handlers.DatasetChecker{Store: store}),
		DatasetHandler: handlers.NewDatasetHandler(store, nil, mgr),
		SessionHandler: handlers.NewSessionHandler(mgr),
		CORS:           middleware.DefaultCORSConfig(),
		Logging:        middleware.DefaultLoggingConfig(),
		RateLimiter:    limiter,
		RateLimit:      middleware.DefaultRateLimitConfig(),
		Recorder:       metrics,
		Logger:         logger,
		MetricsHandler: collector.Handler(),
	})
	return r, logger
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_RoutesRegistered(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	want := map[string]bool{
		"GET /healthz":                         false,
		"GET /readyz":                          false,
		"GET /metrics":                         false,
		"GET /api/v1/dataset":                  false,
		"GET /api/v1/dataset/features":         false,
		"GET /api/v1/dataset/boundaries/:name": false,
		"GET /api/v1/dataset/options":          false,
		"POST /api/v1/dataset/refresh":         false,
		"POST /api/v1/sessions":                false,
		"GET /api/v1/sessions/:id":             false,
		"DELETE /api/v1/sessions/:id":          false,
		"POST /api/v1/sessions/:id/events":     false,
		"GET /api/v1/sessions/:id/view":        false,
		"POST /api/v1/sessions/:id/insight":    false,
	}
	for _, ri := range r.Routes() {
		key := ri.Method + " " + ri.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, "missing route %s", route)
	}
}

func TestNewRouter_NilHandlers(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Empty(t, r.Routes())

	w := request(r, http.MethodGet, "/api/v1/dataset", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestNewRouter_Probes(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/readyz", "").Code)
}

func TestNewRouter_SessionRoundTripAndMetrics(t *testing.T) {
	r, logger := newTestRouter(t, nil)

	w := request(r, http.MethodPost, "/api/v1/sessions", `{"viewport_width":1280}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"sidebar_open":true`)
	assert.True(t, logger.HasMessage("info", "HTTP request completed"))

	w = request(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/v1/sessions"`)
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := request(r, http.MethodPut, "/api/v1/dataset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewRouter_RateLimited(t *testing.T) {
	limiter := middleware.NewTokenBucketLimiter(0.001, 1, time.Duration(0))
	r, _ := newTestRouter(t, limiter)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/dataset", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/api/v1/dataset", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/healthz", "").Code)
}
