package fetch

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a fetch is aborted through its context.
// Cancellation is an expected outcome of query supersession and must never
// be surfaced as a transport failure.
var ErrCancelled = errors.New("fetch cancelled")

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses and undecodable bodies.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// TransportError represents a failed fetch with additional context.
type TransportError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s error: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s error: %s", e.Class, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err represents a cancelled fetch.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// classifyStatus categorizes a non-2xx HTTP status for observability.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}
