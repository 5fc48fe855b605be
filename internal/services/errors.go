package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleResponse is returned when a browse response arrives after a
	// newer browse was requested. The current view is left untouched.
	ErrStaleResponse = errors.New("browse response is stale")

	// ErrAssignmentInFlight is returned when the document already has an
	// assignment being coordinated.
	ErrAssignmentInFlight = errors.New("an e-sign assignment is already in progress for this document")

	// ErrNotInCache is returned when a cached-only lookup is made before the
	// library was loaded.
	ErrNotInCache = errors.New("library is not loaded")
)

// TimeoutError means the polling budget ran out before the assignment
// settled. The assignment may still complete on the portal.
type TimeoutError struct {
	DocumentID   int64
	AssignmentID string
	Attempts     int
	LastErr      error // last status query error, if any
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("assignment %s for document %d still processing after %d status checks", e.AssignmentID, e.DocumentID, e.Attempts)
}

// OutcomeUnknown is always true: a timeout is not a failure.
func (e *TimeoutError) OutcomeUnknown() bool { return true }

// UserMessage tells the user the assignment did not fail.
func (e *TimeoutError) UserMessage() string {
	return fmt.Sprintf("The signature request was submitted but is still processing (assignment %s). It has not failed; check its status again later.", e.AssignmentID)
}

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
