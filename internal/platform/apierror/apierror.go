// Package apierror defines the API error taxonomy and the global echo error
// handler. Every error surfaces to clients as a JSON envelope:
//
//	{"success": false, "error": {"message": "...", "code": "...", "details": ...}}
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caretrack/caretrack/internal/platform/db"
)

// Machine-readable error codes returned in the envelope.
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeReferencedNotFound  = "REFERENCED_RECORD_NOT_FOUND"
	CodeServiceNotInCatalog = "SERVICE_NOT_IN_CATALOG"
	CodeSegmentAccessDenied = "SEGMENT_ACCESS_DENIED"
	CodeNoCompanyAssigned   = "NO_COMPANY_ASSIGNED"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// ApiError is an error with an explicit HTTP status and machine code.
// Details, when set, is serialized into the envelope (e.g. field-level
// validation failures or a foreign key conflict report).
type ApiError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an ApiError.
func New(status int, code, message string) *ApiError {
	return &ApiError{Status: status, Code: code, Message: message}
}

// WithDetails attaches a details payload and returns the error.
func (e *ApiError) WithDetails(details interface{}) *ApiError {
	e.Details = details
	return e
}

// Convenience constructors for the common cases.

func BadRequest(code, message string) *ApiError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *ApiError {
	return New(http.StatusUnauthorized, CodeNotAuthenticated, message)
}

func Forbidden(code, message string) *ApiError {
	return New(http.StatusForbidden, code, message)
}

func NotFound(message string) *ApiError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(code, message string) *ApiError {
	return New(http.StatusConflict, code, message)
}

func Validation(message string, details interface{}) *ApiError {
	return New(http.StatusBadRequest, CodeValidation, message).WithDetails(details)
}

func Internal(message string) *ApiError {
	return New(http.StatusInternalServerError, CodeInternal, message)
}

// FromPG translates a PostgreSQL constraint violation into a domain error.
// operation names the storage operation for the generic fallback message.
func FromPG(err error, operation string) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err) {
		return Conflict(CodeDuplicateEntry, "a record with these values already exists")
	}
	if db.IsForeignKeyViolation(err) {
		return BadRequest(CodeReferencedNotFound, "referenced record not found")
	}
	return fmt.Errorf("database error during %s: %w", operation, err)
}

// envelope is the wire shape of every error response.
type envelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorRecorder persists error occurrences (the error_logs table). Writes
// are best-effort and must never block the response path.
type ErrorRecorder interface {
	RecordError(path, method, code, message string, status int, requestID string)
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that renders the JSON
// envelope, logs server errors, and fires an async error-log write. Stack
// traces never reach the client.
func HTTPErrorHandler(logger zerolog.Logger, recorder ErrorRecorder) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := CodeInternal
		message := "internal server error"
		var details interface{}

		var apiErr *ApiError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Status
			code = apiErr.Code
			message = apiErr.Message
			details = apiErr.Details
		case errors.As(err, &echoErr):
			status = echoErr.Code
			message = fmt.Sprintf("%v", echoErr.Message)
			code = codeForStatus(status)
		}

		rid, _ := c.Get("request_id").(string)

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		if recorder != nil {
			recorder.RecordError(c.Request().URL.Path, c.Request().Method, code, message, status, rid)
		}

		resp := envelope{Success: false, Error: errorBody{Message: message, Code: code, Details: details}}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeNotAuthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
