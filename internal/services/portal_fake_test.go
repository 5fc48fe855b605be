package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/library"
	"github.com/taxdesk/portal-client/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errPortalDown = &api.NetworkError{Op: "test", Err: errors.New("connection refused")}

type statusReply struct {
	status models.AssignmentState
	errMsg string
	err    error
}

// fakePortal is an in-memory portal implementing every backend interface.
type fakePortal struct {
	mu        sync.Mutex
	nextID    int64
	folders   map[int64]models.FolderNode
	documents map[int64]models.DocumentEntry
	calls     map[string]int

	browseFoldersErr error
	browseFilesErr   error
	listErrs         []error // consumed by ListAllFolders, one per call
	archiveErr       error
	createAssignErr  error

	gates   map[int64]chan struct{} // browse of folder id blocks until closed
	entered chan int64

	statuses    []statusReply // consumed per call; the last one repeats
	statusGate  chan struct{}
	statusCalls int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		nextID:    100,
		folders:   make(map[int64]models.FolderNode),
		documents: make(map[int64]models.DocumentEntry),
		calls:     make(map[string]int),
		gates:     make(map[int64]chan struct{}),
		entered:   make(chan int64, 16),
	}
}

func (p *fakePortal) addFolder(id int64, title string, parent models.FolderRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.folders[id] = models.FolderNode{ID: id, Title: title, Parent: parent}
}

func (p *fakePortal) addDocument(d models.DocumentEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents[d.ID] = d
}

func (p *fakePortal) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *fakePortal) record(name string) {
	p.mu.Lock()
	p.calls[name]++
	p.mu.Unlock()
}

func (p *fakePortal) block(folderID int64) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	gate := make(chan struct{})
	p.gates[folderID] = gate
	return gate
}

func (p *fakePortal) waitGate(ctx context.Context, ref models.FolderRef) error {
	id, _ := ref.ID()
	p.mu.Lock()
	gate := p.gates[id]
	p.mu.Unlock()
	if gate == nil {
		return nil
	}
	p.entered <- id
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakePortal) snapshot() ([]models.FolderNode, []models.DocumentEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	folders := make([]models.FolderNode, 0, len(p.folders))
	for _, f := range p.folders {
		folders = append(folders, f)
	}
	docs := make([]models.DocumentEntry, 0, len(p.documents))
	for _, d := range p.documents {
		docs = append(docs, d)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].ID < folders[j].ID })
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return folders, docs
}

func visible(archived bool, title, search string, q api.BrowseQuery) bool {
	if archived && !q.ShowArchived {
		return false
	}
	return search == "" || strings.Contains(strings.ToLower(title), strings.ToLower(search))
}

func (p *fakePortal) BrowseFolders(ctx context.Context, q api.BrowseQuery) (*api.FolderListing, error) {
	p.record("browse_folders")
	if err := p.waitGate(ctx, q.FolderID); err != nil {
		return nil, err
	}
	if p.browseFoldersErr != nil {
		return nil, p.browseFoldersErr
	}

	folders, docs := p.snapshot()
	tree, _ := library.Build(folders, docs)
	crumbs, err := tree.Breadcrumbs(q.FolderID)
	if err != nil {
		return nil, &api.RemoteRejection{Op: "browse folders", StatusCode: 404, Message: "Folder not found."}
	}

	out := &api.FolderListing{Breadcrumbs: crumbs}
	for _, f := range tree.Subfolders(q.FolderID) {
		if visible(f.IsArchived, f.Title, q.Search, q) {
			out.Folders = append(out.Folders, f)
		}
	}
	return out, nil
}

func (p *fakePortal) BrowseFiles(ctx context.Context, q api.BrowseQuery) (*api.DocumentListing, error) {
	p.record("browse_files")
	if err := p.waitGate(ctx, q.FolderID); err != nil {
		return nil, err
	}
	if p.browseFilesErr != nil {
		return nil, p.browseFilesErr
	}

	folders, docs := p.snapshot()
	tree, _ := library.Build(folders, docs)
	out := &api.DocumentListing{Statistics: &models.Statistics{}}
	for _, e := range tree.ChildrenOf(q.FolderID) {
		if e.IsFolder || !visible(e.Document.IsArchived, e.Document.FileName, q.Search, q) {
			continue
		}
		out.Documents = append(out.Documents, *e.Document)
		out.Statistics.Total++
	}
	return out, nil
}

func (p *fakePortal) ListAllFolders(ctx context.Context) ([]models.FolderNode, error) {
	p.record("list_folders")
	p.mu.Lock()
	if len(p.listErrs) > 0 {
		err := p.listErrs[0]
		p.listErrs = p.listErrs[1:]
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()
	folders, _ := p.snapshot()
	return folders, nil
}

func (p *fakePortal) ListAllDocuments(ctx context.Context) ([]models.DocumentEntry, error) {
	p.record("list_documents")
	_, docs := p.snapshot()
	return docs, nil
}

func (p *fakePortal) CreateFolder(ctx context.Context, req models.FolderRequest) (*models.FolderNode, error) {
	p.record("create_folder")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	f := models.FolderNode{ID: p.nextID, Title: req.Title, Parent: req.ParentID}
	p.folders[f.ID] = f
	return &f, nil
}

func (p *fakePortal) RenameFolder(ctx context.Context, folderID int64, title string) (*models.FolderNode, error) {
	p.record("rename_folder")
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.folders[folderID]
	if !ok {
		return nil, &api.RemoteRejection{Op: "rename folder", StatusCode: 404, Message: "Folder not found."}
	}
	f.Title = title
	p.folders[folderID] = f
	return &f, nil
}

func (p *fakePortal) DeleteFolder(ctx context.Context, folderID int64) error {
	p.record("delete_folder")
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.folders[folderID]; !ok {
		return &api.RemoteRejection{Op: "delete folder", StatusCode: 404, Message: "Folder not found."}
	}
	delete(p.folders, folderID)
	return nil
}

func (p *fakePortal) DeleteDocument(ctx context.Context, documentID int64) error {
	p.record("delete_document")
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.documents[documentID]; !ok {
		return &api.RemoteRejection{Op: "delete document", StatusCode: 404, Message: "Document not found."}
	}
	delete(p.documents, documentID)
	return nil
}

var patchedAt = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func (p *fakePortal) SetFolderArchived(ctx context.Context, folderID int64, archived bool) (*models.FolderPatch, error) {
	p.record("archive_folder")
	if p.archiveErr != nil {
		return nil, p.archiveErr
	}
	return &models.FolderPatch{IsArchived: &archived, UpdatedAt: &patchedAt}, nil
}

func (p *fakePortal) SetDocumentArchived(ctx context.Context, documentID int64, archived bool) (*models.DocumentPatch, error) {
	p.record("archive_document")
	if p.archiveErr != nil {
		return nil, p.archiveErr
	}
	status := "archived"
	if !archived {
		status = "uploaded"
	}
	return &models.DocumentPatch{IsArchived: &archived, Status: &status, UpdatedAt: &patchedAt}, nil
}

func (p *fakePortal) CreateAssignment(ctx context.Context, req models.AssignmentRequest) (*models.AssignmentCreated, error) {
	p.record("create_assignment")
	if p.createAssignErr != nil {
		return nil, p.createAssignErr
	}
	return &models.AssignmentCreated{AssignmentID: "asg-1"}, nil
}

func (p *fakePortal) AssignmentStatus(ctx context.Context, assignmentID string) (*models.AssignmentStatus, error) {
	p.mu.Lock()
	p.statusCalls++
	n := p.statusCalls
	gate := p.statusGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(p.statuses) == 0 {
		return &models.AssignmentStatus{Status: models.AssignmentProcessing}, nil
	}
	idx := n - 1
	if idx >= len(p.statuses) {
		idx = len(p.statuses) - 1
	}
	r := p.statuses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &models.AssignmentStatus{Status: r.status, Error: r.errMsg, Result: []byte(`{"envelope":"env-1"}`)}, nil
}

func (p *fakePortal) statusCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusCalls
}
