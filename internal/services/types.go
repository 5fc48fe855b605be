// Package services provides the frontend-agnostic document library logic:
// browsing, listing, archiving and e-sign coordination. The CLI (or any other
// frontend) drives these services; state changes are published on the EventBus.
package services

import (
	"context"
	"encoding/json"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/models"
)

// LibraryBackend is the subset of the portal API used for browsing and
// library mutations. *api.Client implements it.
type LibraryBackend interface {
	BrowseFolders(ctx context.Context, q api.BrowseQuery) (*api.FolderListing, error)
	BrowseFiles(ctx context.Context, q api.BrowseQuery) (*api.DocumentListing, error)
	ListAllFolders(ctx context.Context) ([]models.FolderNode, error)
	ListAllDocuments(ctx context.Context) ([]models.DocumentEntry, error)

	CreateFolder(ctx context.Context, req models.FolderRequest) (*models.FolderNode, error)
	RenameFolder(ctx context.Context, folderID int64, title string) (*models.FolderNode, error)
	DeleteFolder(ctx context.Context, folderID int64) error
	DeleteDocument(ctx context.Context, documentID int64) error
}

// ArchiveBackend toggles the archived flag of folders and documents.
type ArchiveBackend interface {
	SetFolderArchived(ctx context.Context, folderID int64, archived bool) (*models.FolderPatch, error)
	SetDocumentArchived(ctx context.Context, documentID int64, archived bool) (*models.DocumentPatch, error)
}

// ESignBackend submits and observes e-sign assignments.
type ESignBackend interface {
	CreateAssignment(ctx context.Context, req models.AssignmentRequest) (*models.AssignmentCreated, error)
	AssignmentStatus(ctx context.Context, assignmentID string) (*models.AssignmentStatus, error)
}

// Query is the search and visibility state that parameterizes browsing.
type Query struct {
	Search       string
	ShowArchived bool
}

// Partial names the side of a paged browse that failed.
type Partial string

const (
	PartialNone      Partial = ""
	PartialFolders   Partial = "folders"   // folders failed, documents shown without breadcrumbs
	PartialDocuments Partial = "documents" // documents failed, folders only
)

// BrowseView is one folder's listing as shown to the user.
// A view is never modified after it is installed.
type BrowseView struct {
	FolderID    models.FolderRef
	Query       Query
	Breadcrumbs []models.Breadcrumb

	// Entries holds folders first, then documents.
	Entries    []models.Entry
	Statistics *models.Statistics

	Partial   Partial
	Cached    bool
	RequestID string
}

// FolderTitle returns the title of the viewed folder from its breadcrumbs.
func (v *BrowseView) FolderTitle() string {
	if v == nil || len(v.Breadcrumbs) == 0 {
		return ""
	}
	return v.Breadcrumbs[len(v.Breadcrumbs)-1].Title
}

// Counts returns the number of folder and document entries.
func (v *BrowseView) Counts() (folders, documents int) {
	if v == nil {
		return 0, 0
	}
	for _, e := range v.Entries {
		if e.IsFolder {
			folders++
		} else {
			documents++
		}
	}
	return folders, documents
}

// DeleteResult is the outcome of deleting one entry in a bulk delete.
type DeleteResult struct {
	Key models.EntryKey
	Err error
}

// DeleteSummary aggregates a bulk delete.
type DeleteSummary struct {
	Deleted int
	Failed  int
	Results []DeleteResult
}

// AssignmentResult is returned when an assignment completes.
type AssignmentResult struct {
	DocumentID   int64
	AssignmentID string
	Payload      json.RawMessage
	Attempts     int
}
