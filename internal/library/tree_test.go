package library

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/taxdesk/portal-client/internal/models"
)

func folder(id int64, title string, parent int64) models.FolderNode {
	f := models.FolderNode{ID: id, Title: title}
	if parent != 0 {
		f.Parent = models.RefTo(parent)
	}
	return f
}

func doc(id int64, name string, folderID int64) models.DocumentEntry {
	d := models.DocumentEntry{ID: id, FileName: name}
	if folderID != 0 {
		d.Folder = models.RefTo(folderID)
	}
	return d
}

func TestBreadcrumbsRootFirst(t *testing.T) {
	tree, report := Build([]models.FolderNode{
		folder(1, "Taxes", 0),
		folder(2, "2024", 1),
		folder(3, "Receipts", 2),
		folder(4, "Notices", 0),
	}, nil)
	if !report.OK() {
		t.Fatalf("unexpected integrity issues: %+v", report.Issues)
	}

	crumbs, err := tree.Breadcrumbs(models.RefTo(3))
	if err != nil {
		t.Fatalf("Breadcrumbs() error = %v", err)
	}
	want := []models.Breadcrumb{{ID: 1, Title: "Taxes"}, {ID: 2, Title: "2024"}, {ID: 3, Title: "Receipts"}}
	if diff := cmp.Diff(want, crumbs); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	root, err := tree.Breadcrumbs(models.RootRef())
	if err != nil || len(root) != 0 {
		t.Errorf("root breadcrumbs = %v, %v; want empty", root, err)
	}
}

func TestBreadcrumbsStopsAtUnresolvableParent(t *testing.T) {
	tree, report := Build([]models.FolderNode{folder(5, "Orphan", 99)}, nil)

	crumbs, err := tree.Breadcrumbs(models.RefTo(5))
	if err != nil {
		t.Fatalf("Breadcrumbs() error = %v", err)
	}
	if len(crumbs) != 1 || crumbs[0].ID != 5 {
		t.Errorf("crumbs = %v, want just the orphan", crumbs)
	}
	if report.OK() || report.Issues[0].MissingID != 99 {
		t.Errorf("expected dangling parent 99 in report, got %+v", report.Issues)
	}
}

func TestBreadcrumbsDetectsCycle(t *testing.T) {
	tree, _ := Build([]models.FolderNode{
		folder(1, "A", 3),
		folder(2, "B", 1),
		folder(3, "C", 2),
	}, nil)

	_, err := tree.Breadcrumbs(models.RefTo(2))
	var ie *DataIntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
	if ie.Kind != IntegrityCycle {
		t.Errorf("Kind = %s, want cycle", ie.Kind)
	}
	if want := []int64{2, 1, 3, 2}; !cmp.Equal(want, ie.Path) {
		t.Errorf("Path = %v, want %v", ie.Path, want)
	}
}

func TestBreadcrumbsSelfParentIsCycle(t *testing.T) {
	tree, _ := Build([]models.FolderNode{folder(7, "Loop", 7)}, nil)

	_, err := tree.Breadcrumbs(models.RefTo(7))
	var ie *DataIntegrityError
	if !errors.As(err, &ie) || ie.Kind != IntegrityCycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestBreadcrumbsUnknownFolderIsDangling(t *testing.T) {
	tree, _ := Build(nil, nil)

	_, err := tree.Breadcrumbs(models.RefTo(42))
	var ie *DataIntegrityError
	if !errors.As(err, &ie) || ie.Kind != IntegrityDangling {
		t.Fatalf("expected dangling error, got %v", err)
	}
}

func TestBreadcrumbsTerminateWithinDepth(t *testing.T) {
	const depth = 50
	folders := make([]models.FolderNode, 0, depth)
	for i := int64(1); i <= depth; i++ {
		folders = append(folders, folder(i, fmt.Sprintf("level-%d", i), i-1))
	}
	tree, _ := Build(folders, nil)

	crumbs, err := tree.Breadcrumbs(models.RefTo(depth))
	if err != nil {
		t.Fatalf("Breadcrumbs() error = %v", err)
	}
	if len(crumbs) != depth {
		t.Errorf("got %d crumbs, want %d", len(crumbs), depth)
	}
	if crumbs[0].ID != 1 || crumbs[depth-1].ID != depth {
		t.Errorf("crumbs not root-first: first=%d last=%d", crumbs[0].ID, crumbs[depth-1].ID)
	}
}

func TestChildrenOfOrdersFoldersBeforeDocuments(t *testing.T) {
	tree, _ := Build(
		[]models.FolderNode{folder(2, "zeta", 0), folder(1, "Alpha", 0), folder(3, "inner", 1)},
		[]models.DocumentEntry{doc(10, "W2.pdf", 0), doc(11, "1099.pdf", 0), doc(12, "inside.pdf", 1)},
	)

	var got []string
	for _, e := range tree.ChildrenOf(models.RootRef()) {
		kind := "doc"
		if e.IsFolder {
			kind = "folder"
		}
		got = append(got, kind+":"+e.Name())
	}
	want := []string{"folder:Alpha", "folder:zeta", "doc:1099.pdf", "doc:W2.pdf"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChildrenOf(root) mismatch (-want +got):\n%s", diff)
	}
}

// Every folder and document appears in exactly one ChildrenOf result.
func TestChildrenOfPartitionsTheLibrary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		nFolders := 1 + rng.Intn(30)
		folders := make([]models.FolderNode, 0, nFolders)
		for i := 1; i <= nFolders; i++ {
			// parents always point at an earlier id, so the set is cycle-free
			parent := int64(rng.Intn(i))
			folders = append(folders, folder(int64(i), fmt.Sprintf("f%d", i), parent))
		}
		nDocs := rng.Intn(60)
		docs := make([]models.DocumentEntry, 0, nDocs)
		for i := 1; i <= nDocs; i++ {
			// document ids deliberately overlap folder ids
			docs = append(docs, doc(int64(i), fmt.Sprintf("d%d.pdf", i), int64(rng.Intn(nFolders+1))))
		}

		tree, report := Build(folders, docs)
		if !report.OK() {
			t.Fatalf("trial %d: well-formed set reported issues %+v", trial, report.Issues)
		}

		seen := make(map[models.EntryKey]int)
		refs := []models.FolderRef{models.RootRef()}
		for _, f := range folders {
			refs = append(refs, models.RefTo(f.ID))
		}
		for _, ref := range refs {
			for _, e := range tree.ChildrenOf(ref) {
				seen[e.Key()]++
			}
		}

		if len(seen) != len(folders)+len(docs) {
			t.Fatalf("trial %d: saw %d distinct entries, want %d", trial, len(seen), len(folders)+len(docs))
		}
		for key, n := range seen {
			if n != 1 {
				t.Errorf("trial %d: %s appeared %d times", trial, key, n)
			}
		}
	}
}

func TestBuildDeduplicatesAndReportsDanglingDocuments(t *testing.T) {
	tree, report := Build(
		[]models.FolderNode{folder(1, "Old", 0), folder(1, "New", 0)},
		[]models.DocumentEntry{doc(1, "a.pdf", 1), doc(2, "b.pdf", 55), doc(2, "b.pdf", 55)},
	)

	folders, documents := tree.Len()
	if folders != 1 || documents != 2 {
		t.Errorf("Len() = %d, %d; want 1, 2", folders, documents)
	}
	if f, _ := tree.Folder(1); f.Title != "New" {
		t.Errorf("duplicate folder kept %q, want last record", f.Title)
	}
	if len(report.Issues) != 1 || report.Issues[0].DocumentID != 2 || report.Issues[0].MissingID != 55 {
		t.Errorf("unexpected report %+v", report.Issues)
	}

	keys := make(map[models.EntryKey]bool)
	for _, e := range tree.Entries() {
		if keys[e.Key()] {
			t.Errorf("Entries() repeated %s", e.Key())
		}
		keys[e.Key()] = true
	}
	if !keys[models.FolderKey(1)] || !keys[models.DocumentKey(1)] {
		t.Error("folder 1 and document 1 must both be present")
	}
}

func TestFolderTitle(t *testing.T) {
	tree, _ := Build([]models.FolderNode{folder(4, "Receipts", 0)}, nil)
	if got := tree.FolderTitle(models.RefTo(4)); got != "Receipts" {
		t.Errorf("FolderTitle(4) = %q", got)
	}
	if got := tree.FolderTitle(models.RootRef()); got != "" {
		t.Errorf("FolderTitle(root) = %q", got)
	}
}

func TestChildrenOfReturnsCopies(t *testing.T) {
	tree, _ := Build([]models.FolderNode{folder(1, "Receipts", 0)}, nil)

	entries := tree.ChildrenOf(models.RootRef())
	entries[0].Folder.Title = "mutated"

	if f, _ := tree.Folder(1); f.Title != "Receipts" {
		t.Error("mutating a returned entry changed the tree")
	}
}
