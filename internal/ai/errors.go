package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEmptyResponse is returned when the upstream answered without a body.
	ErrEmptyResponse = errors.New("empty response from completion server")
	// ErrNoChoices is returned when the upstream answered with zero choices.
	ErrNoChoices = errors.New("no response generated")
	// ErrMalformedResponse is returned when a 2xx body is not a completion object.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// UpstreamError is a non-2xx answer from the completion endpoint.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.Status, e.Message)
}

// TransportError wraps connectivity failures and timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("completion request timed out: %v", e.Err)
	}
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

type ErrorKind string

const (
	KindNone     ErrorKind = ""
	KindNetwork  ErrorKind = "network"
	KindUpstream ErrorKind = "upstream"
	KindEmpty    ErrorKind = "empty"
	KindUnknown  ErrorKind = "unknown"
)

// Classify maps a provider error onto the failure taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var transportErr *TransportError
	var upstreamErr *UpstreamError
	switch {
	case errors.As(err, &transportErr):
		return KindNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.As(err, &upstreamErr), errors.Is(err, ErrMalformedResponse):
		return KindUpstream
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrNoChoices):
		return KindEmpty
	default:
		return KindUnknown
	}
}
