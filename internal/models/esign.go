package models

import (
	"encoding/json"
	"strings"
)

// AssignmentRequest asks the portal to route a document to a signer.
type AssignmentRequest struct {
	DocumentID         int64  `json:"document_id"`
	SignerID           string `json:"signer_id"`
	HasSpouseSignature bool   `json:"has_spouse_signature"`
	PreparerMustSign   bool   `json:"preparer_must_sign"`
	Deadline           *Date  `json:"deadline"`
}

// AssignmentCreated is the portal's reply to an assignment submission.
type AssignmentCreated struct {
	AssignmentID string `json:"assignment_id"`
	Message      string `json:"message,omitempty"`
}

// AssignmentState is the backend-side processing state of an assignment.
type AssignmentState string

const (
	AssignmentPending    AssignmentState = "pending"
	AssignmentProcessing AssignmentState = "processing"
	AssignmentCompleted  AssignmentState = "completed"
	AssignmentFailed     AssignmentState = "failed"
)

// IsTerminal reports whether polling can stop on this state.
func (s AssignmentState) IsTerminal() bool {
	return s == AssignmentCompleted || s == AssignmentFailed
}

// AssignmentStatus is one observation of an assignment's progress.
type AssignmentStatus struct {
	Status AssignmentState `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Normalize lower-cases the status so "Completed" and "completed" compare equal.
func (s *AssignmentStatus) Normalize() {
	s.Status = AssignmentState(strings.ToLower(strings.TrimSpace(string(s.Status))))
}
