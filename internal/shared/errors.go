package shared

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrDisabled = errors.New("disabled")
)

type APIError struct {
	Code    string `json:"code" example:"invalid_path"`
	Message string `json:"message" example:"path escapes the workspace root"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func Conflict(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusConflict)
}

func TooManyRequests(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusTooManyRequests)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}

func BadGateway(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadGateway)
}

func ServiceUnavailable(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusServiceUnavailable)
}

// InvalidPathError is returned when a caller-supplied path resolves outside
// the permitted root, or targets the root where that is not allowed.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

type PreprocessKind string

const (
	PreprocessNotFound PreprocessKind = "not_found"
	PreprocessDecode   PreprocessKind = "decode"
	PreprocessArtifact PreprocessKind = "artifact"
	PreprocessRead     PreprocessKind = "read"
)

type PreprocessError struct {
	Path string
	Kind PreprocessKind
	Err  error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *PreprocessError) Unwrap() error {
	return e.Err
}

// NotConfiguredError means a feature is switched off because a credential
// or setting is missing. It is raised before any work is attempted.
type NotConfiguredError struct {
	Feature string
	Missing string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Feature, e.Missing)
}

type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPError maps domain errors onto API responses. Errors it does not
// recognise become a generic 500.
func HTTPError(err error) *echo.HTTPError {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var pathErr *InvalidPathError
	if errors.As(err, &pathErr) {
		return BadRequest("invalid_path", pathErr.Error())
	}

	var prepErr *PreprocessError
	if errors.As(err, &prepErr) {
		if prepErr.Kind == PreprocessNotFound {
			return NotFound("image_not_found", "image not found")
		}
		return InternalError("preprocess_failed", "failed to preprocess image")
	}

	var cfgErr *NotConfiguredError
	if errors.As(err, &cfgErr) {
		return ServiceUnavailable("not_configured", cfgErr.Error())
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return BadGateway("upstream_failed", "completion service request failed")
	}

	if errors.Is(err, ErrNotFound) {
		return NotFound("not_found", "not found")
	}

	return InternalError("internal_error", "internal server error")
}
