package mender

import (
	"fmt"
	"net/http"
	"strings"
)

// Messages for failures that never carry an upstream status code. Both are
// deliberately generic: transport errors and decode errors may embed the
// request URL or raw body, which must never reach the caller.
const (
	msgNetworkError    = "Network error - the Mender server could not be reached"
	msgInvalidResponse = "Invalid response format received from the Mender server"
)

// APIError is the typed error raised for every transport or upstream
// failure. Message is sanitized and safe for display; StatusCode is zero
// for transport-level failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("mender API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mender API error: %s", e.Message)
}

// IsNotFound reports whether the error is the not-found class that triggers
// version fallback. No other failure class escalates.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the error indicates an authentication or
// permission failure.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

var statusCodeMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request parameters provided",
	http.StatusUnauthorized:        "Authentication failed - please check your access token",
	http.StatusForbidden:           "Access denied - insufficient permissions for this operation",
	http.StatusNotFound:            "Requested resource not found",
	http.StatusRequestTimeout:      "Request timeout - the operation took too long",
	http.StatusTooManyRequests:     "Rate limit exceeded - please wait before making more requests",
	http.StatusInternalServerError: "Internal server error occurred",
	http.StatusBadGateway:          "Bad gateway - upstream service unavailable",
	http.StatusServiceUnavailable:  "Service temporarily unavailable",
	http.StatusGatewayTimeout:      "Gateway timeout - upstream service did not respond",
}

// statusMessage maps an upstream status to its display template. Not-found
// messages get a resource hint derived from a plain substring check on the
// request path; unknown paths fall back to the generic endpoint hint.
func statusMessage(statusCode int, path string) string {
	base, ok := statusCodeMessages[statusCode]
	if !ok {
		return fmt.Sprintf("Unrecognized status %d returned by the Mender server", statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		return base + ". Verify your Personal Access Token is valid and has appropriate permissions."
	case statusCode == http.StatusForbidden:
		return base + ". Your token may lack required permissions (Device Management, Deployment Management)."
	case statusCode == http.StatusNotFound:
		lower := strings.ToLower(path)
		switch {
		case strings.Contains(lower, "devices"):
			return base + ". The device ID may not exist in your Mender account."
		case strings.Contains(lower, "deployments"):
			return base + ". The deployment ID may not exist or logs may not be available."
		default:
			return base + ". The requested endpoint may not be available in your Mender version."
		}
	case statusCode == http.StatusTooManyRequests:
		return base + ". The Mender API rate limit has been exceeded."
	case statusCode >= 500:
		return base + ". This appears to be a temporary issue with the Mender service."
	}

	return base
}
