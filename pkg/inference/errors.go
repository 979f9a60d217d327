package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common conditions.
var (
	// ErrNoEndpoint is returned when no classifier endpoint is configured.
	ErrNoEndpoint = errors.New("inference: endpoint required")

	// ErrEmptyWindow is returned when asked to classify a window with no samples.
	ErrEmptyWindow = errors.New("inference: empty window")

	// ErrNoClassifier is returned when a chain has nothing to try.
	ErrNoClassifier = errors.New("inference: no classifier available")

	// ErrMalformedResponse is wrapped when a response is neither a
	// prediction nor an error document.
	ErrMalformedResponse = errors.New("inference: malformed response")
)

// ServerError is a domain-level error reported by the classifier in an
// {"error": "..."} response.
type ServerError struct {
	// Endpoint is the URL that answered.
	Endpoint string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Message is the error text from the classifier.
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("inference [%s]: classifier error %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// TransportError means the request did not produce a usable answer:
// network failure, timeout, or a response that could not be decoded.
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("inference [%s]: transport: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// IsServer reports whether err carries a *ServerError.
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsTransport reports whether err carries a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ChainError aggregates errors from every classifier in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "inference chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("inference chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("inference chain: all %d classifiers failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
