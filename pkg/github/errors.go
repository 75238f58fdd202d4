package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ErrRetryExhausted is returned when all retry attempts are exhausted.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// APIError represents a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("github %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// StructuralError represents a response whose JSON shape did not match the
// endpoint contract. Never retried.
type StructuralError struct {
	Resource string
	Detail   string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("unexpected %s response shape: %s", e.Resource, e.Detail)
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// IsTransient reports whether a failure is worth retrying: network
// timeouts and connect failures, 5xx responses, and 429 responses.
// Everything else (other 4xx, structural errors, programming errors) is
// permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return isNetworkError(err)
}

// IsUpstreamFailure reports whether err is a failure of the upstream
// dependency itself (transport failure or error status). These are the
// only errors counted against the circuit breaker; structural errors
// raised after a successful response are not.
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}

	return isNetworkError(err)
}

// IsTimeout reports whether err was caused by a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isNetworkError reports whether err is a transport-level failure
// (timeout, connection refused, DNS failure).
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
