package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

func healthEngine(h *HealthHandler) *gin.Engine {
	e := gin.New()
	e.GET("/healthz", h.Liveness)
	e.GET("/readyz", h.Readiness)
	return e
}

func TestLiveness(t *testing.T) {
	w := do(healthEngine(NewHealthHandler("1.2.3")), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LivenessResponse
	decode(t, w, &resp)
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadiness_NoCheckers(t *testing.T) {
	w := do(healthEngine(NewHealthHandler("dev")), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_DatasetNotLoaded(t *testing.T) {
	h := NewHealthHandler("dev", DatasetChecker{Store: feature.NewStore()})
	w := do(healthEngine(h), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	decode(t, w, &resp)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["dataset"].Status)
	assert.Equal(t, "features not loaded", resp.Components["dataset"].Error)
}

func TestReadiness_AllHealthy(t *testing.T) {
	h := NewHealthHandler("dev",
		DatasetChecker{Store: loadedStore(t, false)},
		errorChecker{})
	w := do(healthEngine(h), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadinessResponse
	decode(t, w, &resp)
	assert.Equal(t, "ready", resp.Status)
	assert.Len(t, resp.Components, 2)
}

func TestReadiness_DependencyDown(t *testing.T) {
	h := NewHealthHandler("dev",
		DatasetChecker{Store: loadedStore(t, false)},
		errorChecker{err: errors.New("connection refused")})
	w := do(healthEngine(h), http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp.Components["dataset"].Status)
	assert.Equal(t, "connection refused", resp.Components["redis"].Error)
}
