package services

import (
	"sync"
	"time"

	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/library"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/util/filter"
	"github.com/taxdesk/portal-client/internal/util/paging"
	"github.com/taxdesk/portal-client/internal/util/sanitize"
)

// ListingPage is what the documents list shows for the current state.
type ListingPage struct {
	Entries []models.Entry
	Bounds  paging.Bounds
	Matched int // entries after filtering, across all pages
	Counts  filter.Counts
	Status  filter.Status
	Search  string

	// Global is true when the page was drawn from the whole cached
	// library rather than the current folder.
	Global bool
}

// Listing holds the quick filter, search term and page of the documents
// list and turns the current browse state into one page of entries.
type Listing struct {
	browse   *BrowseService
	pageSize int
	now      func() time.Time

	mu     sync.Mutex
	status filter.Status
	search string
	page   int
}

// NewListing creates a Listing over browse. A pageSize below 1 uses the default.
func NewListing(browse *BrowseService, pageSize int) *Listing {
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	return &Listing{
		browse:   browse,
		pageSize: pageSize,
		now:      time.Now,
		page:     1,
	}
}

// ToggleStatus activates s, or clears the filter when s is already active.
// The page resets to 1. It returns the filter now in effect.
func (l *Listing) ToggleStatus(s filter.Status) filter.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == s {
		l.status = filter.StatusNone
	} else {
		l.status = s
	}
	l.page = 1
	return l.status
}

// SetStatus activates s without toggling.
func (l *Listing) SetStatus(s filter.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != s {
		l.status = s
		l.page = 1
	}
}

// SetSearch changes the search term and resets the page when it changed.
// The term is also passed to the browse query for paged mode.
func (l *Listing) SetSearch(term string) {
	term = sanitize.Term(term)

	l.mu.Lock()
	changed := term != l.search
	l.search = term
	if changed {
		l.page = 1
	}
	l.mu.Unlock()

	if changed {
		q := l.browse.Query()
		l.browse.SetQuery(term, q.ShowArchived)
	}
}

// SetPage selects a 1-based page. Out-of-range pages are clamped when the
// page is drawn.
func (l *Listing) SetPage(page int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.page = page
}

// Page filters the active input set and returns the selected page.
func (l *Listing) Page() ListingPage {
	l.mu.Lock()
	status, search, page := l.status, l.search, l.page
	l.mu.Unlock()

	view := l.browse.CurrentView()
	tree, loaded := l.browse.Cache().Tree()
	global := search != "" && loaded

	var input []models.Entry
	switch {
	case global:
		input = tree.Entries()
		if !l.browse.Query().ShowArchived {
			input = withoutArchived(input)
		}
	case view != nil:
		input = view.Entries
	}

	today := models.NewDate(l.now())
	opts := filter.Options{
		Status:      status,
		Search:      search,
		Today:       today,
		FolderTitle: folderTitles(tree, loaded, view),
	}
	matched := filter.Apply(input, opts)

	counts := filter.Count(input, today)
	if !global && view != nil && search == "" {
		counts = counts.Merge(view.Statistics)
	}

	entries, bounds := paging.Slice(matched, page, l.pageSize)
	return ListingPage{
		Entries: entries,
		Bounds:  bounds,
		Matched: len(matched),
		Counts:  counts,
		Status:  status,
		Search:  search,
		Global:  global,
	}
}

// folderTitles resolves containing-folder titles from the cache when it is
// loaded, otherwise from the current view's breadcrumbs.
func folderTitles(tree *library.Tree, loaded bool, view *BrowseView) func(models.FolderRef) string {
	if loaded {
		return tree.FolderTitle
	}
	return func(ref models.FolderRef) string {
		if view == nil || !ref.Equal(view.FolderID) {
			return ""
		}
		return view.FolderTitle()
	}
}
