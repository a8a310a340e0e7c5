// Package errors writes the JSON error envelope shared by every API route.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/DennisWilmot/land-mapping-web/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrStorage            = "STORAGE_ERROR"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

func logFields(c *gin.Context, message string) map[string]interface{} {
	return map[string]interface{}{
		"message":    message,
		"request_id": middleware.GetRequestID(c),
		"path":       c.Request.URL.Path,
	}
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	if log := middleware.GetLogger(c); log != nil {
		log.Warn("Resource not found", logFields(c, message))
	}
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	if log := middleware.GetLogger(c); log != nil {
		fields := logFields(c, message)
		if details != nil {
			fields["details"] = details
		}
		log.Warn("Bad request", fields)
	}
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// ServiceUnavailable returns a 503 when a dependency (the dataset or the
// selection store) is not ready to serve the request.
func ServiceUnavailable(c *gin.Context, message string) {
	if log := middleware.GetLogger(c); log != nil {
		log.Warn("Service unavailable", logFields(c, message))
	}
	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, nil)
}

// StorageError returns a 500 for a failed saved-selection write. The change
// is kept in memory, which the details tell the client.
func StorageError(c *gin.Context, message string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		fields := logFields(c, message)
		fields["method"] = c.Request.Method
		log.Error("Saved selection write failed", err, fields)
	}
	respond(c, http.StatusInternalServerError, ErrStorage, message, map[string]interface{}{
		"persisted": false,
	})
}

// InternalServerError returns a 500 Internal Server Error response.
// The error itself is logged but never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	if log := middleware.GetLogger(c); log != nil {
		fields := logFields(c, message)
		fields["method"] = c.Request.Method
		log.Error("Internal server error", err, fields)
	}
	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil)
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{})
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Warn("Validation error", map[string]interface{}{
			"request_id": middleware.GetRequestID(c),
			"path":       c.Request.URL.Path,
			"fields":     details,
		})
	}
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// BindError reports a failed ShouldBind call: field errors as a validation
// error, anything else (malformed JSON, wrong types) as a bad request.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		ValidationError(c, verrs)
		return
	}
	BadRequest(c, "Invalid request body", map[string]interface{}{
		"error": err.Error(),
	})
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gt":
		return "Must be greater than " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lt":
		return "Must be less than " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "uuid":
		return "Must be a valid UUID"
	case "gtefield":
		return "Must be greater than or equal to " + err.Param()
	case "dive":
		return "Contains an invalid entry"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
