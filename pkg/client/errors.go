package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorClass represents a classification of upstream failures.
// An upstream that answered with 4xx/5xx is not a failure and has no class.
type ErrorClass string

const (
	// ErrorClassNetwork represents connection-level failures (refused, reset, DNS).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents calls that exceeded their deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassMalformed represents unbuildable requests or unreadable responses.
	ErrorClassMalformed ErrorClass = "malformed"
)

// UpstreamError means the upstream produced no usable response.
type UpstreamError struct {
	Class    ErrorClass
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (%s): %v", e.Class, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("upstream %s error (%s)", e.Class, e.Endpoint)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// classifyError categorizes a transport error.
func classifyError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}

	return ErrorClassNetwork
}
