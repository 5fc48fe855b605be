package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"

	"github.com/taxdesk/portal-client/internal/models"
)

// CreateAssignment submits an e-sign assignment. Processing continues
// asynchronously on the portal; poll AssignmentStatus for the outcome.
func (c *Client) CreateAssignment(ctx context.Context, req models.AssignmentRequest) (*models.AssignmentCreated, error) {
	var out models.AssignmentCreated
	if err := c.call(ctx, "create assignment", nethttp.MethodPost, "/api/esign/assignments/", req, &out); err != nil {
		return nil, err
	}
	if out.AssignmentID == "" {
		return nil, fmt.Errorf("create assignment: response carried no assignment_id")
	}
	return &out, nil
}

// AssignmentStatus queries the processing state of an assignment.
func (c *Client) AssignmentStatus(ctx context.Context, assignmentID string) (*models.AssignmentStatus, error) {
	var out models.AssignmentStatus
	path := fmt.Sprintf("/api/esign/assignments/%s/status/", url.PathEscape(assignmentID))
	if err := c.call(ctx, "assignment status", nethttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}
