package api

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/models"
)

// DocumentListing is the browse-files response for one folder.
type DocumentListing struct {
	Documents  []models.DocumentEntry `json:"documents"`
	Statistics *models.Statistics     `json:"statistics"`
}

// BrowseFiles lists the documents directly inside q.FolderID.
func (c *Client) BrowseFiles(ctx context.Context, q BrowseQuery) (*DocumentListing, error) {
	var out DocumentListing
	path := "/api/documents/files/browse/?" + q.values().Encode()
	if err := c.call(ctx, "browse files", nethttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllDocuments walks the recursive document listing.
func (c *Client) ListAllDocuments(ctx context.Context) ([]models.DocumentEntry, error) {
	path := fmt.Sprintf("/api/documents/files/?recursive=true&page_size=%d", constants.RecursiveListPageSize)
	return listAll[models.DocumentEntry](ctx, c, "list documents", path)
}

// DeleteDocument deletes a document from the library
func (c *Client) DeleteDocument(ctx context.Context, documentID int64) error {
	path := fmt.Sprintf("/api/documents/files/%d/", documentID)
	return c.call(ctx, "delete document", nethttp.MethodDelete, path, nil, nil)
}

// SetDocumentArchived archives or unarchives a document and returns the
// partial record the portal sends back.
func (c *Client) SetDocumentArchived(ctx context.Context, documentID int64, archived bool) (*models.DocumentPatch, error) {
	action := "unarchive"
	if archived {
		action = "archive"
	}
	var out models.DocumentPatch
	path := fmt.Sprintf("/api/documents/files/%d/%s/", documentID, action)
	if err := c.call(ctx, action+" document", nethttp.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
