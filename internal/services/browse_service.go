package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/events"
	"github.com/taxdesk/portal-client/internal/http"
	"github.com/taxdesk/portal-client/internal/library"
	"github.com/taxdesk/portal-client/internal/logging"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/util/sanitize"
	"github.com/taxdesk/portal-client/internal/validation"
)

// BrowseServiceConfig configures the BrowseService.
type BrowseServiceConfig struct {
	// ShowArchived is the initial archive visibility.
	ShowArchived bool

	// Retry governs LoadAll. Zero MaxRetries means http.DefaultConfig().
	Retry http.Config

	Logger *logging.Logger
}

// browseKey identifies what a browse asked for. A response is only
// installed while its key is still the latest one requested.
type browseKey struct {
	folder models.FolderRef
	query  Query
}

// requestTag travels with one Browse call.
type requestTag struct {
	seq uint64
	key browseKey
	id  string
}

// BrowseService lists folders either page by page from the portal or from
// the recursively loaded library cache, and owns cache invalidation.
type BrowseService struct {
	portal    LibraryBackend
	eventBus  *events.EventBus
	logger    *logging.Logger
	cache     *library.Cache
	workspace *Workspace
	retry     http.Config

	mu        sync.Mutex
	query     Query
	seq       uint64
	latest    browseKey
	installed uint64 // seq of the view currently shown
	current   *BrowseView
}

// NewBrowseService creates a new BrowseService with an empty cache.
func NewBrowseService(portal LibraryBackend, eventBus *events.EventBus, config BrowseServiceConfig) *BrowseService {
	if config.Retry.MaxRetries <= 0 {
		config.Retry = http.DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &BrowseService{
		portal:    portal,
		eventBus:  eventBus,
		logger:    logger.Component("browse-service"),
		cache:     library.NewCache(),
		workspace: NewWorkspace(),
		retry:     config.Retry,
		query:     Query{ShowArchived: config.ShowArchived},
	}
}

// Cache returns the library cache backing recursive mode.
func (bs *BrowseService) Cache() *library.Cache {
	return bs.cache
}

// Workspace returns the list and preview state fed by Browse.
func (bs *BrowseService) Workspace() *Workspace {
	return bs.workspace
}

// SetQuery stores the search term and archive visibility for later browses.
func (bs *BrowseService) SetQuery(search string, showArchived bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.query = Query{Search: strings.TrimSpace(search), ShowArchived: showArchived}
}

// Query returns the current query.
func (bs *BrowseService) Query() Query {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.query
}

// CurrentView returns the last successfully installed view, or nil.
func (bs *BrowseService) CurrentView() *BrowseView {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.current
}

// Browse shows the contents of folderID. With the cache loaded it is
// answered locally; otherwise folders and documents are fetched
// concurrently. A response overtaken by a newer Browse returns
// ErrStaleResponse and leaves the current view alone. When both fetches
// fail the previous view is kept and the error is returned.
func (bs *BrowseService) Browse(ctx context.Context, folderID models.FolderRef) (*BrowseView, error) {
	bs.mu.Lock()
	bs.seq++
	tag := requestTag{
		seq: bs.seq,
		key: browseKey{folder: folderID, query: bs.query},
		id:  uuid.NewString(),
	}
	bs.latest = tag.key
	bs.mu.Unlock()

	if tree, ok := bs.cache.Tree(); ok {
		view, err := bs.browseCached(tree, tag)
		if err != nil {
			return nil, err
		}
		return bs.install(tag, view)
	}

	view, err := bs.browseRemote(ctx, tag)
	if err != nil {
		return nil, err
	}
	return bs.install(tag, view)
}

// Refresh re-browses the folder of the current view (root if none).
func (bs *BrowseService) Refresh(ctx context.Context) (*BrowseView, error) {
	bs.mu.Lock()
	folder := bs.latest.folder
	if bs.current != nil {
		folder = bs.current.FolderID
	}
	bs.mu.Unlock()
	return bs.Browse(ctx, folder)
}

func (bs *BrowseService) browseCached(tree *library.Tree, tag requestTag) (*BrowseView, error) {
	folderID := tag.key.folder

	crumbs, err := tree.Breadcrumbs(folderID)
	if err != nil {
		bs.reportIntegrityError(err)
		return nil, err
	}

	entries := tree.ChildrenOf(folderID)
	if !tag.key.query.ShowArchived {
		entries = withoutArchived(entries)
	}

	return &BrowseView{
		FolderID:    folderID,
		Query:       tag.key.query,
		Breadcrumbs: crumbs,
		Entries:     entries,
		Cached:      true,
		RequestID:   tag.id,
	}, nil
}

func (bs *BrowseService) browseRemote(ctx context.Context, tag requestTag) (*BrowseView, error) {
	q := api.BrowseQuery{
		FolderID:     tag.key.folder,
		Search:       tag.key.query.Search,
		ShowArchived: tag.key.query.ShowArchived,
	}
	ctx = api.WithRequestID(ctx, tag.id)

	var (
		folders            *api.FolderListing
		documents          *api.DocumentListing
		folderErr, fileErr error
	)

	// Both fetches always run to completion so a failure on one side never
	// hides the other side's result.
	var g errgroup.Group
	g.Go(func() error {
		folders, folderErr = bs.portal.BrowseFolders(ctx, q)
		return nil
	})
	g.Go(func() error {
		documents, fileErr = bs.portal.BrowseFiles(ctx, q)
		return nil
	})
	_ = g.Wait()

	if folderErr != nil && fileErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err := &api.NetworkError{Op: "browse folder", Err: errors.Join(folderErr, fileErr)}
		bs.logger.Warn().Err(err).Str("folder_id", q.FolderID.String()).Msg("Browse failed, keeping previous view")
		bs.eventBus.PublishError("browse", err, true)
		return nil, err
	}

	view := &BrowseView{
		FolderID:  q.FolderID,
		Query:     tag.key.query,
		RequestID: tag.id,
	}

	if folderErr == nil {
		view.Breadcrumbs = folders.Breadcrumbs
		for _, f := range folders.Folders {
			view.Entries = append(view.Entries, models.FolderEntry(f))
		}
	} else {
		view.Partial = PartialFolders
		bs.logger.Warn().Err(folderErr).Str("folder_id", q.FolderID.String()).Msg("Folder listing failed, showing documents only")
		bs.eventBus.PublishError("browse folders", folderErr, api.IsNetworkError(folderErr))
	}

	if fileErr == nil {
		view.Statistics = documents.Statistics
		for _, d := range documents.Documents {
			view.Entries = append(view.Entries, models.DocumentEntryOf(d))
		}
	} else {
		view.Partial = PartialDocuments
		bs.logger.Warn().Err(fileErr).Str("folder_id", q.FolderID.String()).Msg("Document listing failed, showing folders only")
		bs.eventBus.PublishError("browse files", fileErr, api.IsNetworkError(fileErr))
	}

	bs.logger.Debug().
		Str("folder_id", q.FolderID.String()).
		Str("request_id", tag.id).
		Int("entries", len(view.Entries)).
		Str("partial", string(view.Partial)).
		Msg("Browse fetched")
	return view, nil
}

// install makes view current unless a newer browse superseded it.
func (bs *BrowseService) install(tag requestTag, view *BrowseView) (*BrowseView, error) {
	bs.mu.Lock()
	if tag.key != bs.latest || tag.seq < bs.installed {
		bs.mu.Unlock()
		bs.logger.Debug().
			Str("folder_id", tag.key.folder.String()).
			Str("request_id", tag.id).
			Msg("Discarding stale browse response")
		return nil, ErrStaleResponse
	}
	bs.installed = tag.seq
	bs.current = view
	bs.mu.Unlock()

	bs.workspace.SetEntries(view.Entries)

	folders, documents := view.Counts()
	bs.eventBus.PublishBrowse(view.FolderID.String(), folders, documents, string(view.Partial), view.Cached)
	return view, nil
}

// LoadAll fetches the whole library and rebuilds the cache. The cache
// reads as not loaded until the rebuild finishes. Integrity problems in
// the fetched data are logged and published, not fatal.
func (bs *BrowseService) LoadAll(ctx context.Context) (*library.Report, error) {
	token := bs.cache.BeginRebuild()

	var (
		folders   []models.FolderNode
		documents []models.DocumentEntry
	)
	retry := bs.retry
	retry.OnRetry = func(attempt int, err error, errType http.ErrorType) {
		bs.logger.Warn().Err(err).Int("attempt", attempt).Str("error_type", http.ErrorTypeName(errType)).Msg("Retrying library load")
	}
	err := http.ExecuteWithRetry(ctx, retry, func() error {
		f, err := bs.portal.ListAllFolders(ctx)
		if err != nil {
			return err
		}
		d, err := bs.portal.ListAllDocuments(ctx)
		if err != nil {
			return err
		}
		folders, documents = f, d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	report, ok := bs.cache.Rebuild(token, folders, documents)
	bs.reportIssues(report)
	if !ok {
		return report, fmt.Errorf("library changed while loading: %w", ErrStaleResponse)
	}

	bs.logger.Info().Int("folders", len(folders)).Int("documents", len(documents)).Msg("Library loaded")
	bs.eventBus.PublishCacheRebuilt(len(folders), len(documents))
	return report, nil
}

// Invalidate drops the recursive cache. The next Browse goes to the portal.
func (bs *BrowseService) Invalidate(reason string) {
	bs.cache.Invalidate()
	bs.logger.Debug().Str("reason", reason).Msg("Library cache invalidated")
	bs.eventBus.PublishCacheInvalidated(reason)
}

// Tree returns the materialized library, loading it first if needed.
func (bs *BrowseService) Tree(ctx context.Context) (*library.Tree, error) {
	if tree, ok := bs.cache.Tree(); ok {
		return tree, nil
	}
	if _, err := bs.LoadAll(ctx); err != nil {
		return nil, err
	}
	tree, ok := bs.cache.Tree()
	if !ok {
		return nil, ErrNotInCache
	}
	return tree, nil
}

// CreateFolder validates and creates a folder under parent.
func (bs *BrowseService) CreateFolder(ctx context.Context, title string, parent models.FolderRef) (*models.FolderNode, error) {
	req := models.FolderRequest{Title: sanitize.Title(title), ParentID: parent}
	if err := validation.ValidateCreateFolder(&req); err != nil {
		return nil, err
	}

	folder, err := bs.portal.CreateFolder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	bs.Invalidate("folder_created")
	bs.logger.Info().Int64("folder_id", folder.ID).Str("title", folder.Title).Msg("Folder created")
	return folder, nil
}

// RenameFolder validates and applies a new title.
func (bs *BrowseService) RenameFolder(ctx context.Context, folderID int64, title string) (*models.FolderNode, error) {
	title = sanitize.Title(title)
	if err := validation.ValidateFolderTitle(title); err != nil {
		return nil, err
	}

	folder, err := bs.portal.RenameFolder(ctx, folderID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to rename folder: %w", err)
	}

	bs.Invalidate("folder_renamed")
	return folder, nil
}

// DeleteFolder deletes a folder by ID.
func (bs *BrowseService) DeleteFolder(ctx context.Context, folderID int64) error {
	if err := bs.portal.DeleteFolder(ctx, folderID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	bs.Invalidate("folder_deleted")
	bs.workspace.Remove(models.FolderKey(folderID))
	return nil
}

// DeleteDocument deletes a document by ID.
func (bs *BrowseService) DeleteDocument(ctx context.Context, documentID int64) error {
	if err := bs.portal.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	bs.Invalidate("document_deleted")
	bs.workspace.Remove(models.DocumentKey(documentID))
	return nil
}

// DeleteItems deletes multiple folders and/or documents, continuing past
// failures.
func (bs *BrowseService) DeleteItems(ctx context.Context, keys []models.EntryKey) DeleteSummary {
	var summary DeleteSummary
	for _, key := range keys {
		var err error
		if key.Kind == models.KindFolder {
			err = bs.DeleteFolder(ctx, key.ID)
		} else {
			err = bs.DeleteDocument(ctx, key.ID)
		}

		if err != nil {
			bs.logger.Error().Err(err).Str("key", key.String()).Msg("Delete failed")
			summary.Failed++
		} else {
			summary.Deleted++
		}
		summary.Results = append(summary.Results, DeleteResult{Key: key, Err: err})
	}
	return summary
}

// reportIntegrityError logs and publishes a materialization failure.
func (bs *BrowseService) reportIntegrityError(err error) {
	var die *library.DataIntegrityError
	if !errors.As(err, &die) {
		return
	}
	bs.logger.Error().
		Err(err).
		Bool("integrity", true).
		Int64("folder_id", die.FolderID).
		Str("kind", string(die.Kind)).
		Msg("Folder data integrity violation")
	bs.eventBus.PublishDataIntegrity(die.FolderID, string(die.Kind), err)
}

// reportIssues logs and publishes every problem found during a rebuild.
func (bs *BrowseService) reportIssues(report *library.Report) {
	if report.OK() {
		return
	}
	for _, issue := range report.Issues {
		folderID := issue.FolderID
		if folderID == 0 {
			folderID = issue.MissingID
		}
		err := &library.DataIntegrityError{Kind: issue.Kind, FolderID: folderID}
		bs.logger.Error().
			Bool("integrity", true).
			Str("kind", string(issue.Kind)).
			Int64("folder_id", issue.FolderID).
			Int64("document_id", issue.DocumentID).
			Int64("missing_id", issue.MissingID).
			Msg("Folder data integrity violation")
		bs.eventBus.PublishDataIntegrity(folderID, string(issue.Kind), err)
	}
}

func withoutArchived(entries []models.Entry) []models.Entry {
	out := entries[:0]
	for _, e := range entries {
		if !e.Archived() {
			out = append(out, e)
		}
	}
	return out
}
