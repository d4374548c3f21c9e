package tracesdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tracelight/tracelight/pkg/httpx"
)

// Stable machine-readable error codes. The OAuth-facing subset follows
// RFC 6749 naming.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidClient     = "invalid_client"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeAccessDenied      = "access_denied"
	ErrorCodeDocumentNotFound  = "document_not_found"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrorCodeInternalError     = "internal_error"
)

// APIError represents an error response from the trace service. It implements
// the error interface and is used both by the server (to write HTTP responses)
// and by the SDK client (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the stable error code (e.g., "invalid_request", "invalid_token")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`

	// Detail is an optional non-sensitive detail field (e.g., the name of the
	// offending parameter). Never carries storage-layer information.
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// WithDetail returns a copy of the error carrying a non-sensitive detail
// string, leaving the predefined value untouched.
func (e *APIError) WithDetail(detail string) *APIError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// Predefined errors, one per taxonomy entry.
var (
	// ErrInvalidRequest is returned when the request is missing a required
	// parameter, includes an invalid parameter value, or is otherwise
	// malformed. Covers bad match_mode/top_k/threshold values and replayed
	// authorization codes.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidClient is returned when the client is unknown, disabled, or
	// the client secret does not match.
	ErrInvalidClient = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidClient,
		Description: "unknown client or client authentication failed",
	}

	// ErrInvalidToken is returned when the bearer credential is missing,
	// malformed, expired or revoked.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or revoked",
	}

	// ErrAccessDenied is returned when authorization is refused or a resource
	// is outside the caller's scope.
	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	// ErrDocumentNotFound is returned when a previewed or matched document no
	// longer exists or is outside the caller's scope.
	ErrDocumentNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeDocumentNotFound,
		Description: "the requested document does not exist or is not accessible",
	}

	// ErrRateLimitExceeded is returned when the per-user request budget is
	// exhausted.
	ErrRateLimitExceeded = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests, try again later",
	}

	// ErrInternalError is returned for collaborator unavailability or any
	// unexpected failure. Storage detail never reaches the client.
	ErrInternalError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeInternalError,
		Description: "internal server error",
	}

	// ErrMethodNotAllowed is returned when the HTTP method is not allowed.
	ErrMethodNotAllowed = &APIError{
		StatusCode:  http.StatusMethodNotAllowed,
		Code:        ErrorCodeInvalidRequest,
		Description: "method not allowed",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}
)

// NewAPIError creates a custom APIError while keeping the taxonomy shape.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// parseErrorResponse turns a non-2xx HTTP response into a typed *APIError.
// Returns nil for success responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Detail:      errResp.Detail,
		}
	}

	// Fallback: generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeInternalError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
