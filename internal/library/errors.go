package library

import (
	"fmt"
	"strings"
)

// IntegrityKind classifies malformed folder data.
type IntegrityKind string

const (
	// IntegrityCycle means a parent chain revisits a folder.
	IntegrityCycle IntegrityKind = "cycle"
	// IntegrityDangling means a reference points at a folder that does not exist.
	IntegrityDangling IntegrityKind = "dangling"
)

// DataIntegrityError reports a backend consistency bug found while
// materializing the tree. It is never a user mistake.
type DataIntegrityError struct {
	Kind     IntegrityKind
	FolderID int64   // folder being resolved when the problem was found
	Path     []int64 // ids walked so far, leaf first
}

func (e *DataIntegrityError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("folder data integrity: %s reference at folder %d", e.Kind, e.FolderID)
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("folder data integrity: %s at folder %d (path %s)", e.Kind, e.FolderID, strings.Join(parts, " -> "))
}

// UserMessage is shown instead of a generic failure.
func (e *DataIntegrityError) UserMessage() string {
	return fmt.Sprintf("The portal returned an inconsistent folder structure (%s at folder %d). Please report this to your preparer.", e.Kind, e.FolderID)
}

// Issue is one integrity problem found during a rebuild.
type Issue struct {
	Kind       IntegrityKind
	FolderID   int64 // folder whose parent is missing, or 0 for documents
	DocumentID int64 // document whose folder is missing, or 0 for folders
	MissingID  int64
}

// Report collects the integrity problems found while indexing.
type Report struct {
	Issues []Issue
}

// OK reports whether the rebuild found no problems.
func (r *Report) OK() bool {
	return r == nil || len(r.Issues) == 0
}
