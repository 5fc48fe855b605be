package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"

	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/models"
)

// BrowseQuery scopes a paged browse request.
type BrowseQuery struct {
	FolderID     models.FolderRef
	Search       string
	ShowArchived bool
}

func (q BrowseQuery) values() url.Values {
	v := url.Values{}
	v.Set("folder_id", q.FolderID.String())
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("show_archived", strconv.FormatBool(q.ShowArchived))
	return v
}

// FolderListing is the browse-folders response: a folder's direct subfolders
// plus its ancestry, root first.
type FolderListing struct {
	Folders     []models.FolderNode `json:"folders"`
	Breadcrumbs []models.Breadcrumb `json:"breadcrumbs"`
}

// BrowseFolders lists the direct subfolders of q.FolderID.
func (c *Client) BrowseFolders(ctx context.Context, q BrowseQuery) (*FolderListing, error) {
	var out FolderListing
	path := "/api/documents/folders/browse/?" + q.values().Encode()
	if err := c.call(ctx, "browse folders", nethttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllFolders walks the recursive folder listing.
func (c *Client) ListAllFolders(ctx context.Context) ([]models.FolderNode, error) {
	path := fmt.Sprintf("/api/documents/folders/?recursive=true&page_size=%d", constants.RecursiveListPageSize)
	return listAll[models.FolderNode](ctx, c, "list folders", path)
}

// CreateFolder creates a folder under parent and returns the stored record.
func (c *Client) CreateFolder(ctx context.Context, req models.FolderRequest) (*models.FolderNode, error) {
	var out models.FolderNode
	if err := c.call(ctx, "create folder", nethttp.MethodPost, "/api/documents/folders/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameFolder changes a folder's title.
func (c *Client) RenameFolder(ctx context.Context, folderID int64, title string) (*models.FolderNode, error) {
	var out models.FolderNode
	body := map[string]string{"title": title}
	path := fmt.Sprintf("/api/documents/folders/%d/", folderID)
	if err := c.call(ctx, "rename folder", nethttp.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFolder deletes a folder
func (c *Client) DeleteFolder(ctx context.Context, folderID int64) error {
	path := fmt.Sprintf("/api/documents/folders/%d/", folderID)
	return c.call(ctx, "delete folder", nethttp.MethodDelete, path, nil, nil)
}

// SetFolderArchived archives or unarchives a folder and returns the partial
// record the portal sends back.
func (c *Client) SetFolderArchived(ctx context.Context, folderID int64, archived bool) (*models.FolderPatch, error) {
	action := "unarchive"
	if archived {
		action = "archive"
	}
	var out models.FolderPatch
	path := fmt.Sprintf("/api/documents/folders/%d/%s/", folderID, action)
	if err := c.call(ctx, action+" folder", nethttp.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
