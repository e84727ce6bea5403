// Package handlers implements the REST endpoints of the dashboard service.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps err to its HTTP status and aborts the request.  Errors
// that are not *AppError are masked as internal errors.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *apperrors.AppError
	if !apperrors.As(err, &ae) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    apperrors.ErrCodeInternal.String(),
			Message: apperrors.DefaultMessageForCode(apperrors.ErrCodeInternal),
		})
		return
	}

	status := apperrors.HTTPStatusForCode(ae.Code)
	resp := ErrorResponse{Code: ae.Code.String(), Message: ae.Message}
	if status < http.StatusInternalServerError {
		resp.Detail = ae.Detail
	}
	c.AbortWithStatusJSON(status, resp)
}
