package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetryExhausted wraps the last failure once MaxAttempts is reached.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a backoff wait.
	// The context error stays in the chain.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass groups failures by how they should be handled.
type ErrorClass string

const (
	// ErrorClassClient is a 4xx other than 429. Its body is still decoded.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer is a 5xx.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit is 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork covers transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// Retryable reports whether another attempt may produce a different outcome.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// ClassForStatus maps an HTTP status to its class. ok is false for non-error statuses.
func ClassForStatus(status int) (class ErrorClass, ok bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit, true
	case status >= 500:
		return ErrorClassServer, true
	case status >= 400:
		return ErrorClassClient, true
	default:
		return "", false
	}
}

// APIError is a failed upstream exchange together with its class.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("upstream %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}
