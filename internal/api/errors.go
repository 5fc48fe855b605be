// Package api provides the portal REST client and its error types.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBaseURL is returned by NewClient when no portal URL is configured.
var ErrEmptyBaseURL = errors.New("API base URL is empty")

// NetworkError is a transient failure: the portal was unreachable, the
// connection dropped, or the server answered 429/5xx. Safe to retry.
type NetworkError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable always reports true.
func (e *NetworkError) Retryable() bool { return true }

// RemoteRejection is a definitive "no" from the portal: a 4xx response or a
// success=false envelope. The Message is meant for the user.
type RemoteRejection struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("%s rejected: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// HTTPStatus exposes the status for retry classification.
func (e *RemoteRejection) HTTPStatus() int { return e.StatusCode }

// Retryable reports false; the same request will be rejected again.
func (e *RemoteRejection) Retryable() bool { return false }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// AsRemoteRejection extracts a *RemoteRejection from err.
func AsRemoteRejection(err error) (*RemoteRejection, bool) {
	var rr *RemoteRejection
	if errors.As(err, &rr) {
		return rr, true
	}
	return nil, false
}

// messenger is implemented by errors that carry their own user-facing text.
type messenger interface {
	UserMessage() string
}

// ErrorMessage normalizes any error into a short user-facing string.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if rr, ok := AsRemoteRejection(err); ok {
		if strings.TrimSpace(rr.Message) != "" {
			return rr.Message
		}
		return fmt.Sprintf("The portal rejected the request (status %d).", rr.StatusCode)
	}

	var m messenger
	if errors.As(err, &m) {
		return m.UserMessage()
	}

	if errors.Is(err, context.Canceled) {
		return "The operation was cancelled."
	}

	if IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		return "Could not reach the portal. Check your connection and try again."
	}

	return err.Error()
}
