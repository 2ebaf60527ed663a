package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// NetworkError reports a failure to reach the remote host at all
// (connection refused, DNS, TLS). It is the only retryable class.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError reports that no response arrived within the request budget.
type TimeoutError struct {
	Method  string
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s %s: no response within %s", e.Method, e.URL, e.Timeout)
}

// ReadError reports a response whose body could not be read. The server
// has already answered, so the request is not retried.
type ReadError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read response: %s %s (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ServiceError reports a response whose status the caller treats as a failure.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err belongs to the retryable class.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status from a ServiceError, or 0.
func StatusCode(err error) int {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode
	}
	return 0
}

// classify maps an http.Client.Do error onto the taxonomy. Caller
// cancellation is passed through untouched.
func classify(method, rawURL string, timeout time.Duration, parent context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Method: method, URL: rawURL, Timeout: timeout}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Method: method, URL: rawURL, Timeout: timeout}
	}
	return &NetworkError{Method: method, URL: rawURL, Err: err}
}
