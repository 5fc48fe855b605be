// Package filter applies status filters and free-text search to a mixed
// list of folders and documents.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/taxdesk/portal-client/internal/models"
)

// Status is one of the quick filters on the documents list.
type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusUploaded  Status = "uploaded"
)

// ParseStatus accepts the filter names used on the command line.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusNone, StatusPending, StatusCompleted, StatusOverdue, StatusUploaded:
		return st, nil
	default:
		return StatusNone, fmt.Errorf("unknown status filter %q (want pending, completed, overdue or uploaded)", s)
	}
}

var (
	pendingStatuses   = map[string]bool{"pending_sign": true, "pending": true, "waiting signature": true}
	completedStatuses = map[string]bool{"processed": true, "completed": true}
)

// IsPending reports whether a document status means it awaits a signature.
func IsPending(status string) bool {
	return pendingStatuses[strings.ToLower(strings.TrimSpace(status))]
}

// IsCompleted reports whether a document status means it is done.
func IsCompleted(status string) bool {
	return completedStatuses[strings.ToLower(strings.TrimSpace(status))]
}

// Options configures Apply.
type Options struct {
	Status Status
	Search string

	// Today anchors the overdue filter. Zero means the current date.
	Today models.Date

	// FolderTitle resolves the title of an entry's containing folder for
	// search. Optional; entries may carry FolderTitle themselves.
	FolderTitle func(models.FolderRef) string
}

func (o Options) today() models.Date {
	if o.Today.IsZero() {
		return models.NewDate(time.Now())
	}
	return o.Today
}

// Searching reports whether a non-blank search term is set.
func (o Options) Searching() bool {
	return strings.TrimSpace(o.Search) != ""
}

// Apply returns the entries matching the status filter and search term,
// in input order. Entries are deduplicated by (kind, id), first one wins.
func Apply(entries []models.Entry, opts Options) []models.Entry {
	term := strings.ToLower(strings.TrimSpace(opts.Search))
	searching := opts.Searching()
	today := opts.today()

	seen := make(map[models.EntryKey]bool, len(entries))
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if !matchesStatus(e, opts.Status, searching, today) {
			continue
		}
		if searching && !matchesSearch(e, term, opts.FolderTitle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesStatus(e models.Entry, status Status, searching bool, today models.Date) bool {
	switch status {
	case StatusNone:
		return true
	case StatusUploaded:
		// a global search must still let the user open a matched folder
		return !e.IsFolder || searching
	}

	if e.IsFolder {
		return false
	}
	d := e.Document

	switch status {
	case StatusPending:
		return IsPending(d.Status)
	case StatusCompleted:
		return IsCompleted(d.Status)
	case StatusOverdue:
		return d.DueDate != nil && d.DueDate.Before(today) && IsPending(d.Status)
	}
	return false
}

func matchesSearch(e models.Entry, term string, folderTitle func(models.FolderRef) string) bool {
	fields := []string{e.Name()}

	if e.IsFolder {
		if folderTitle != nil {
			fields = append(fields, folderTitle(e.Folder.Parent))
		}
	} else {
		d := e.Document
		fields = append(fields, d.DocumentType, d.Extension(), d.CategoryName(), d.FolderTitle)
		if folderTitle != nil && d.FolderTitle == "" {
			fields = append(fields, folderTitle(d.Folder))
		}
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Counts is the statistics strip for a set of entries.
type Counts struct {
	Total     int `json:"total" yaml:"total"`
	Pending   int `json:"pending" yaml:"pending"`
	Completed int `json:"completed" yaml:"completed"`
	Overdue   int `json:"overdue" yaml:"overdue"`
	Uploaded  int `json:"uploaded" yaml:"uploaded"`
}

// Count tallies documents by status. Folders are not counted; Uploaded is
// the number of documents in scope.
func Count(entries []models.Entry, today models.Date) Counts {
	if today.IsZero() {
		today = models.NewDate(time.Now())
	}
	var c Counts
	for _, e := range entries {
		if e.IsFolder {
			continue
		}
		d := e.Document
		c.Total++
		c.Uploaded++
		switch {
		case IsPending(d.Status):
			c.Pending++
			if d.DueDate != nil && d.DueDate.Before(today) {
				c.Overdue++
			}
		case IsCompleted(d.Status):
			c.Completed++
		}
	}
	return c
}

// Merge overlays backend statistics onto locally computed counts. The
// backend's uploaded figure is used only when it sends one.
func (c Counts) Merge(stats *models.Statistics) Counts {
	if stats == nil {
		return c
	}
	return Counts{
		Total:     stats.Total,
		Pending:   stats.Pending,
		Completed: stats.Completed,
		Overdue:   stats.Overdue,
		Uploaded:  stats.UploadedOr(c.Uploaded),
	}
}
