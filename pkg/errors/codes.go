package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel codes outside any module.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeStorageError       ErrorCode = "COMMON_016"
	ErrCodeMessagingError     ErrorCode = "COMMON_017"
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceStatus      ErrorCode = "SRC_002"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
	ErrCodeDataSourceStale       ErrorCode = "SRC_005"
	ErrCodeDatasetEmpty          ErrorCode = "SRC_006"
	ErrCodeFeatureNotFound       ErrorCode = "SRC_007"
	ErrCodeBoundaryNotFound      ErrorCode = "SRC_008"
)

// Session Error Codes
const (
	ErrCodeSessionNotFound   ErrorCode = "SES_001"
	ErrCodeSessionLimit      ErrorCode = "SES_002"
	ErrCodeUnknownEvent      ErrorCode = "SES_003"
	ErrCodeInvalidTransition ErrorCode = "SES_004"
)

// AI Error Codes
const (
	ErrCodeAIModelNotAvailable ErrorCode = "AI_001"
	ErrCodeAIInferenceFailed   ErrorCode = "AI_002"
	ErrCodeAIInputInvalid      ErrorCode = "AI_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceStatus:      http.StatusBadGateway,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,
	ErrCodeDataSourceStale:       http.StatusConflict,
	ErrCodeDatasetEmpty:          http.StatusServiceUnavailable,
	ErrCodeFeatureNotFound:       http.StatusNotFound,
	ErrCodeBoundaryNotFound:      http.StatusNotFound,

	ErrCodeSessionNotFound:   http.StatusNotFound,
	ErrCodeSessionLimit:      http.StatusTooManyRequests,
	ErrCodeUnknownEvent:      http.StatusBadRequest,
	ErrCodeInvalidTransition: http.StatusConflict,

	ErrCodeAIModelNotAvailable: http.StatusServiceUnavailable,
	ErrCodeAIInferenceFailed:   http.StatusBadGateway,
	ErrCodeAIInputInvalid:      http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "message publishing error",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceStatus:      "data source returned a non-success status",
	ErrCodeDataSourceParseError:  "failed to parse data source response",
	ErrCodeDataSourceStale:       "stale data source response discarded",
	ErrCodeDatasetEmpty:          "no data loaded yet",
	ErrCodeFeatureNotFound:       "feature not found",
	ErrCodeBoundaryNotFound:      "boundary overlay not found",

	ErrCodeSessionNotFound:   "session not found",
	ErrCodeSessionLimit:      "too many active sessions",
	ErrCodeUnknownEvent:      "unknown event type",
	ErrCodeInvalidTransition: "invalid panel transition",

	ErrCodeAIModelNotAvailable: "AI model not available",
	ErrCodeAIInferenceFailed:   "AI generation failed",
	ErrCodeAIInputInvalid:      "invalid input for AI model",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.SplitN(string(code), "_", 2)
	if len(parts) == 2 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
