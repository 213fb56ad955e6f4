package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/gcbaptista/tagsearch/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON       ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery      ErrorCode = "INVALID_QUERY"
	ErrorCodeWildcardCapacity  ErrorCode = "WILDCARD_CAPACITY_EXCEEDED"
	ErrorCodePostNotFound      ErrorCode = "POST_NOT_FOUND"
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeJobAlreadyRunning ErrorCode = "JOB_ALREADY_RUNNING"
	ErrorCodeRateLimited       ErrorCode = "RATE_LIMITED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response and aborts the handler chain
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with one detail per problem
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendServiceError maps an error returned by a service to its HTTP status and code.
// Anything unrecognized is an internal error.
func SendServiceError(c *gin.Context, operation string, err error) {
	var validationErr *apperrors.ValidationError
	var capacityErr *apperrors.WildcardCapacityError
	var postErr *apperrors.PostNotFoundError

	switch {
	case errors.As(err, &validationErr):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, validationErr.Error(), ErrorDetail{
			Field:   validationErr.Field,
			Message: validationErr.Message,
			Code:    "VALIDATION_ERROR",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	case errors.As(err, &capacityErr):
		SendError(c, http.StatusBadRequest, ErrorCodeWildcardCapacity, capacityErr.Error(), ErrorDetail{
			Field:   "pattern",
			Message: capacityErr.Pattern,
		})
	case errors.As(err, &postErr):
		SendError(c, http.StatusNotFound, ErrorCodePostNotFound, postErr.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeNotFound, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		SendError(c, http.StatusConflict, ErrorCodeJobAlreadyRunning, err.Error())
	default:
		SendInternalError(c, operation, err)
	}
}
