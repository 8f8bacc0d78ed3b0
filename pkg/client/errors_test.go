package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: ErrorClassTimeout,
		},
		{
			name:     "wrapped deadline exceeded",
			err:      fmt.Errorf("Get \"http://x\": %w", context.DeadlineExceeded),
			expected: ErrorClassTimeout,
		},
		{
			name:     "net timeout",
			err:      &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}},
			expected: ErrorClassTimeout,
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")},
			expected: ErrorClassNetwork,
		},
		{
			name:     "plain error",
			err:      errors.New("EOF"),
			expected: ErrorClassNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.expected {
				t.Errorf("classifyError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestUpstreamError_Error(t *testing.T) {
	tests := []struct {
		name     string
		upErr    *UpstreamError
		expected string
	}{
		{
			name: "error with wrapped error",
			upErr: &UpstreamError{
				Class:    ErrorClassNetwork,
				Endpoint: "getPageableCourses",
				Err:      errors.New("connection refused"),
			},
			expected: "upstream network error (getPageableCourses): connection refused",
		},
		{
			name: "error without wrapped error",
			upErr: &UpstreamError{
				Class:    ErrorClassTimeout,
				Endpoint: "other",
			},
			expected: "upstream timeout error (other)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.upErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	upErr := &UpstreamError{
		Class: ErrorClassNetwork,
		Err:   baseErr,
	}

	if !errors.Is(upErr, baseErr) {
		t.Error("errors.Is should find the wrapped error")
	}

	wrapped := fmt.Errorf("forward: %w", upErr)
	var target *UpstreamError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find the UpstreamError")
	}
	if target.Class != ErrorClassNetwork {
		t.Errorf("Class = %s, want network", target.Class)
	}
}
