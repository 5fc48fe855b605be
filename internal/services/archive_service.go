package services

import (
	"context"
	"fmt"

	"github.com/taxdesk/portal-client/internal/events"
	"github.com/taxdesk/portal-client/internal/logging"
	"github.com/taxdesk/portal-client/internal/models"
)

// invalidator drops the recursive library cache.
type invalidator interface {
	Invalidate(reason string)
}

// ArchiveService toggles the archived flag of folders and documents with an
// optimistic local update. The workspace flips immediately; the portal's
// partial record is merged on success and the flip is rolled back on
// failure.
type ArchiveService struct {
	portal    ArchiveBackend
	workspace *Workspace
	cache     invalidator
	eventBus  *events.EventBus
	logger    *logging.Logger
}

// NewArchiveService creates an ArchiveService patching workspace. Folder
// toggles invalidate cache.
func NewArchiveService(portal ArchiveBackend, workspace *Workspace, cache invalidator, eventBus *events.EventBus, logger *logging.Logger) *ArchiveService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if workspace == nil {
		workspace = NewWorkspace()
	}
	return &ArchiveService{
		portal:    portal,
		workspace: workspace,
		cache:     cache,
		eventBus:  eventBus,
		logger:    logger.Component("archive-service"),
	}
}

// SetArchived archives the entry when currentlyArchived is false and
// unarchives it otherwise. On success the returned entry is the merged
// record; it is also what the list and the preview (when it shows the same
// entry) now hold. On failure the workspace is exactly as before the call.
func (as *ArchiveService) SetArchived(ctx context.Context, key models.EntryKey, currentlyArchived bool) (*models.Entry, error) {
	target := !currentlyArchived

	snap := as.workspace.snapshot(key)
	as.workspace.update(key, func(e *models.Entry) { setArchivedFlag(e, target) })

	merge, err := as.toggle(ctx, key, target)
	if err != nil {
		as.workspace.restore(snap)
		as.logger.Warn().Err(err).Str("key", key.String()).Bool("archived", target).Msg("Archive toggle failed, rolled back")
		as.eventBus.PublishArchive(key.String(), currentlyArchived, true, err)
		return nil, fmt.Errorf("failed to %s %s %d: %w", archiveVerb(target), key.Kind, key.ID, err)
	}

	merged, found := as.workspace.update(key, merge)
	if !found {
		merged = placeholderEntry(key)
		setArchivedFlag(&merged, target)
		merge(&merged)
	}

	if key.Kind == models.KindFolder && as.cache != nil {
		as.cache.Invalidate("folder_" + archiveVerb(target) + "d")
	}

	as.logger.Info().Str("key", key.String()).Bool("archived", merged.Archived()).Msg("Archive toggle applied")
	as.eventBus.PublishArchive(key.String(), merged.Archived(), false, nil)
	return &merged, nil
}

// toggle calls the portal and returns a function merging its partial
// record into an entry.
func (as *ArchiveService) toggle(ctx context.Context, key models.EntryKey, archived bool) (func(*models.Entry), error) {
	switch key.Kind {
	case models.KindFolder:
		patch, err := as.portal.SetFolderArchived(ctx, key.ID, archived)
		if err != nil {
			return nil, err
		}
		return func(e *models.Entry) {
			if e.Folder != nil && patch != nil {
				patch.Apply(e.Folder)
			}
		}, nil

	case models.KindDocument:
		patch, err := as.portal.SetDocumentArchived(ctx, key.ID, archived)
		if err != nil {
			return nil, err
		}
		return func(e *models.Entry) {
			if e.Document != nil && patch != nil {
				patch.Apply(e.Document)
			}
		}, nil
	}
	return nil, fmt.Errorf("unknown entry kind %q", key.Kind)
}

func setArchivedFlag(e *models.Entry, archived bool) {
	if e.IsFolder && e.Folder != nil {
		e.Folder.IsArchived = archived
	} else if e.Document != nil {
		e.Document.IsArchived = archived
	}
}

// placeholderEntry stands in for an entry that is not loaded in the
// workspace, e.g. when archiving by id from the command line.
func placeholderEntry(key models.EntryKey) models.Entry {
	if key.Kind == models.KindFolder {
		return models.FolderEntry(models.FolderNode{ID: key.ID})
	}
	return models.DocumentEntryOf(models.DocumentEntry{ID: key.ID})
}

func archiveVerb(archived bool) string {
	if archived {
		return "archive"
	}
	return "unarchive"
}
