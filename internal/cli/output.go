package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/library"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/services"
	"github.com/taxdesk/portal-client/internal/util/filter"
	"github.com/taxdesk/portal-client/internal/util/sanitize"
	strutil "github.com/taxdesk/portal-client/internal/util/strings"
)

// outputFormat selects how listings are printed.
type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", outputTable:
		return outputTable, nil
	case outputJSON, outputYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", s)
}

// entryRow is the printable form of one list entry.
type entryRow struct {
	Kind     models.EntryKind `json:"kind" yaml:"kind"`
	ID       int64            `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Status   string           `json:"status,omitempty" yaml:"status,omitempty"`
	Category string           `json:"category,omitempty" yaml:"category,omitempty"`
	Size     int64            `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	DueDate  string           `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Updated  time.Time        `json:"updated_at" yaml:"updated_at"`
	Archived bool             `json:"archived" yaml:"archived"`
	Folder   string           `json:"folder,omitempty" yaml:"folder,omitempty"`
}

// listingDoc is the json/yaml document for one listing page.
type listingDoc struct {
	Folder     string        `json:"folder" yaml:"folder"`
	Path       []string      `json:"path" yaml:"path"`
	Status     string        `json:"status,omitempty" yaml:"status,omitempty"`
	Search     string        `json:"search,omitempty" yaml:"search,omitempty"`
	Global     bool          `json:"global_search" yaml:"global_search"`
	Page       int           `json:"page" yaml:"page"`
	TotalPages int           `json:"total_pages" yaml:"total_pages"`
	Matched    int           `json:"matched" yaml:"matched"`
	Partial    string        `json:"partial,omitempty" yaml:"partial,omitempty"`
	Counts     filter.Counts `json:"counts" yaml:"counts"`
	Entries    []entryRow    `json:"entries" yaml:"entries"`
}

func toRow(e models.Entry, folderTitle func(models.FolderRef) string) entryRow {
	row := entryRow{
		Kind:     e.Key().Kind,
		ID:       e.Key().ID,
		Name:     e.Name(),
		Status:   e.Status(),
		Archived: e.Archived(),
	}
	if e.IsFolder {
		row.Updated = e.Folder.UpdatedAt
		return row
	}
	d := e.Document
	row.Category = d.CategoryName()
	row.Size = d.FileSizeBytes
	row.Updated = d.UpdatedAt
	if d.DueDate != nil {
		row.DueDate = d.DueDate.String()
	}
	row.Folder = d.FolderTitle
	if row.Folder == "" && folderTitle != nil {
		row.Folder = folderTitle(d.Folder)
	}
	return row
}

func pathTitles(view *services.BrowseView) []string {
	titles := []string{"Home"}
	if view == nil {
		return titles
	}
	for _, b := range view.Breadcrumbs {
		titles = append(titles, b.Title)
	}
	return titles
}

// renderListing prints one listing page in the chosen format. A nil
// folderTitle falls back to the viewed folder's own title.
func renderListing(w io.Writer, format outputFormat, page services.ListingPage, view *services.BrowseView, folderTitle func(models.FolderRef) string, now time.Time) error {
	doc := listingDoc{
		Path:       pathTitles(view),
		Status:     string(page.Status),
		Search:     page.Search,
		Global:     page.Global,
		Page:       page.Bounds.Page,
		TotalPages: page.Bounds.TotalPages,
		Matched:    page.Matched,
		Counts:     page.Counts,
		Entries:    make([]entryRow, 0, len(page.Entries)),
	}
	if view != nil {
		doc.Folder = view.FolderID.String()
		doc.Partial = string(view.Partial)
		if folderTitle == nil {
			folderTitle = func(ref models.FolderRef) string {
				if ref.Equal(view.FolderID) {
					return view.FolderTitle()
				}
				return ""
			}
		}
	}
	for _, e := range page.Entries {
		doc.Entries = append(doc.Entries, toRow(e, folderTitle))
	}

	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to format YAML: %w", err)
		}
		return enc.Close()
	}

	printListingTable(w, doc, now)
	return nil
}

func printListingTable(w io.Writer, doc listingDoc, now time.Time) {
	if doc.Global {
		fmt.Fprintf(w, "Search results for %q across the whole library\n", doc.Search)
	} else {
		fmt.Fprintf(w, "%s\n", strings.Join(doc.Path, " / "))
	}
	c := doc.Counts
	fmt.Fprintf(w, "Total %d · Pending %d · Completed %d · Overdue %d · Uploaded %d\n",
		c.Total, c.Pending, c.Completed, c.Overdue, c.Uploaded)
	switch doc.Partial {
	case string(services.PartialFolders):
		fmt.Fprintln(w, "! Folders could not be loaded; showing documents only")
	case string(services.PartialDocuments):
		fmt.Fprintln(w, "! Documents could not be loaded; showing folders only")
	}
	fmt.Fprintln(w)

	if len(doc.Entries) == 0 {
		fmt.Fprintln(w, "No matching folders or documents.")
		return
	}

	fmt.Fprintf(w, "%-8s %-10s %-40s %-18s %-10s %s\n", "KIND", "ID", "NAME", "STATUS", "SIZE", "UPDATED")
	for _, r := range doc.Entries {
		name := sanitize.Display(r.Name)
		if r.Kind == models.KindFolder {
			name += "/"
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		status, size := r.Status, "-"
		if r.Kind == models.KindDocument {
			size = humanize.Bytes(uint64(r.Size))
		}
		if r.DueDate != "" && status != "" {
			status += " (due " + r.DueDate + ")"
		}
		if r.Archived {
			status = strings.TrimSpace(status + " [archived]")
		}
		updated := "-"
		if !r.Updated.IsZero() {
			updated = humanize.RelTime(r.Updated, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%-8s %-10d %-40s %-18s %-10s %s\n", r.Kind, r.ID, name, status, size, updated)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Page %d of %d (%s matching)\n", doc.Page, doc.TotalPages, humanize.Comma(int64(doc.Matched)))
}

// renderTree prints the folder hierarchy below the root, with a document
// count and total size per folder.
func renderTree(w io.Writer, tree *library.Tree, showArchived bool) {
	folders, documents := tree.Len()
	fmt.Fprintf(w, "Home (%s %s, %s %s)\n",
		humanize.Comma(int64(folders)), strutil.Pluralize("folder", int64(folders)),
		humanize.Comma(int64(documents)), strutil.Pluralize("document", int64(documents)))
	renderSubtree(w, tree, models.RootRef(), "", showArchived)
}

func renderSubtree(w io.Writer, tree *library.Tree, parent models.FolderRef, indent string, showArchived bool) {
	subs := tree.Subfolders(parent)
	visible := subs[:0:0]
	for _, f := range subs {
		if showArchived || !f.IsArchived {
			visible = append(visible, f)
		}
	}

	for i, f := range visible {
		branch, next := "├── ", "│   "
		if i == len(visible)-1 {
			branch, next = "└── ", "    "
		}

		docs, size := 0, int64(0)
		for _, e := range tree.ChildrenOf(models.RefTo(f.ID)) {
			if e.IsFolder || (!showArchived && e.Archived()) {
				continue
			}
			docs++
			size += e.Document.FileSizeBytes
		}

		label := sanitize.Display(f.Title)
		if f.IsArchived {
			label += " [archived]"
		}
		fmt.Fprintf(w, "%s%s%s/ (%d, %s)\n", indent, branch, label, docs, humanize.Bytes(uint64(size)))
		renderSubtree(w, tree, models.RefTo(f.ID), indent+next, showArchived)
	}
}

// renderDeleteSummary prints one line per entry and a total.
func renderDeleteSummary(w io.Writer, summary services.DeleteSummary) {
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "✗ %s: %s\n", r.Key, api.ErrorMessage(r.Err))
			continue
		}
		fmt.Fprintf(w, "✓ %s deleted\n", r.Key)
	}
	fmt.Fprintf(w, "\n%d deleted, %d failed\n", summary.Deleted, summary.Failed)
}
