package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigtopo/coop-driouch/internal/application/dashboard"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// SessionService is the dashboard session API.  *dashboard.Manager
// satisfies it.
type SessionService interface {
	Create(width int) (dashboard.State, error)
	State(id string) (dashboard.State, error)
	Apply(id string, ev dashboard.Event) (dashboard.State, error)
	View(id string) (dashboard.View, error)
	GenerateInsight(ctx context.Context, id string) (dashboard.InsightState, error)
	Delete(id string) error
}

// CreateSessionRequest is the body of POST /api/v1/sessions.
type CreateSessionRequest struct {
	ViewportWidth int `json:"viewport_width"`
}

// SessionHandler serves /api/v1/sessions.
type SessionHandler struct {
	svc SessionService
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create handles POST /api/v1/sessions.  An empty body opens a desktop
// session.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, apperrors.InvalidParam("invalid request body").WithCause(err))
		return
	}
	st, err := h.svc.Create(req.ViewportWidth)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	st, err := h.svc.State(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Delete handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostEvent handles POST /api/v1/sessions/:id/events.
func (h *SessionHandler) PostEvent(c *gin.Context) {
	var ev dashboard.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, apperrors.InvalidParam("invalid event body").WithCause(err))
		return
	}
	st, err := h.svc.Apply(c.Param("id"), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// View handles GET /api/v1/sessions/:id/view.
func (h *SessionHandler) View(c *gin.Context) {
	v, err := h.svc.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Insight handles POST /api/v1/sessions/:id/insight.  Generation failures
// are reported inside the returned state, not as an HTTP error.
func (h *SessionHandler) Insight(c *gin.Context) {
	st, err := h.svc.GenerateInsight(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
