package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/handlers"
	"github.com/sigtopo/coop-driouch/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	HealthHandler  *handlers.HealthHandler
	DatasetHandler *handlers.DatasetHandler
	SessionHandler *handlers.SessionHandler

	// Middleware
	CORS        middleware.CORSConfig
	Logging     middleware.LoggingConfig
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig
	Recorder    middleware.RequestRecorder

	// Infrastructure
	Logger         logging.Logger
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine serving probes, metrics and API v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware, outermost first.
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder, metricsPath))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	registerDatasetRoutes(api, cfg.DatasetHandler)
	registerSessionRoutes(api, cfg.SessionHandler)

	return r
}

// registerDatasetRoutes mounts the shared dataset endpoints under /dataset.
func registerDatasetRoutes(r *gin.RouterGroup, h *handlers.DatasetHandler) {
	if h == nil {
		return
	}
	g := r.Group("/dataset")
	g.GET("", h.Status)
	g.GET("/features", h.Features)
	g.GET("/boundaries/:name", h.Boundary)
	g.GET("/options", h.Options)
	g.POST("/refresh", h.Refresh)
}

// registerSessionRoutes mounts the per-viewer dashboard endpoints under
// /sessions.
func registerSessionRoutes(r *gin.RouterGroup, h *handlers.SessionHandler) {
	if h == nil {
		return
	}
	g := r.Group("/sessions")
	g.POST("", h.Create)

	item := g.Group("/:id")
	item.GET("", h.Get)
	item.DELETE("", h.Delete)
	item.POST("/events", h.PostEvent)
	item.GET("/view", h.View)
	item.POST("/insight", h.Insight)
}
