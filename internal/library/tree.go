// Package library materializes the client's document library from the flat
// folder and document lists the portal returns.
package library

import (
	"sort"
	"strings"

	"github.com/taxdesk/portal-client/internal/models"
)

// Tree is an immutable, indexed view of the whole library. Parents are
// normalized to plain ids; folders live in one slice and are addressed by index.
type Tree struct {
	folders   []models.FolderNode
	documents []models.DocumentEntry

	byID        map[int64]int              // folder id -> index in folders
	docByID     map[int64]int              // document id -> index in documents
	subfolders  map[models.FolderRef][]int // parent -> folder indexes
	documentsIn map[models.FolderRef][]int // folder -> document indexes
}

// Build indexes folders and documents. Duplicate ids (overlapping pages of
// a recursive listing) keep the last record seen. The report lists
// references to folders that are not in the set.
func Build(folders []models.FolderNode, documents []models.DocumentEntry) (*Tree, *Report) {
	t := &Tree{
		byID:        make(map[int64]int, len(folders)),
		docByID:     make(map[int64]int, len(documents)),
		subfolders:  make(map[models.FolderRef][]int),
		documentsIn: make(map[models.FolderRef][]int),
	}

	// First pass: arena of unique folders and documents
	for _, f := range folders {
		if i, ok := t.byID[f.ID]; ok {
			t.folders[i] = f
			continue
		}
		t.byID[f.ID] = len(t.folders)
		t.folders = append(t.folders, f)
	}
	for _, d := range documents {
		if i, ok := t.docByID[d.ID]; ok {
			t.documents[i] = d
			continue
		}
		t.docByID[d.ID] = len(t.documents)
		t.documents = append(t.documents, d)
	}

	report := &Report{}

	// Second pass: parent -> children index
	for i, f := range t.folders {
		t.subfolders[f.Parent] = append(t.subfolders[f.Parent], i)
		if pid, ok := f.Parent.ID(); ok {
			if _, exists := t.byID[pid]; !exists {
				report.Issues = append(report.Issues, Issue{Kind: IntegrityDangling, FolderID: f.ID, MissingID: pid})
			}
		}
	}

	// Third pass: documents into their folders
	for i, d := range t.documents {
		t.documentsIn[d.Folder] = append(t.documentsIn[d.Folder], i)
		if fid, ok := d.Folder.ID(); ok {
			if _, exists := t.byID[fid]; !exists {
				report.Issues = append(report.Issues, Issue{Kind: IntegrityDangling, DocumentID: d.ID, MissingID: fid})
			}
		}
	}

	for ref := range t.subfolders {
		idx := t.subfolders[ref]
		sort.SliceStable(idx, func(a, b int) bool {
			return lessFold(t.folders[idx[a]].Title, t.folders[idx[b]].Title)
		})
	}
	for ref := range t.documentsIn {
		idx := t.documentsIn[ref]
		sort.SliceStable(idx, func(a, b int) bool {
			return lessFold(t.documents[idx[a]].FileName, t.documents[idx[b]].FileName)
		})
	}

	return t, report
}

func lessFold(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// Breadcrumbs returns the ancestry of folderID, root-most first and the
// folder itself last. The root has no breadcrumbs. The walk stops at a null
// parent or at a parent that is not in the tree.
//
// A folder id that is not in the tree, or a parent chain that revisits a
// folder, returns *DataIntegrityError.
func (t *Tree) Breadcrumbs(folderID models.FolderRef) ([]models.Breadcrumb, error) {
	id, ok := folderID.ID()
	if !ok {
		return []models.Breadcrumb{}, nil
	}

	idx, exists := t.byID[id]
	if !exists {
		return nil, &DataIntegrityError{Kind: IntegrityDangling, FolderID: id}
	}

	visited := make(map[int64]bool)
	var path []int64
	var reversed []models.Breadcrumb

	for {
		f := t.folders[idx]
		if visited[f.ID] {
			return nil, &DataIntegrityError{Kind: IntegrityCycle, FolderID: id, Path: append(path, f.ID)}
		}
		visited[f.ID] = true
		path = append(path, f.ID)
		reversed = append(reversed, models.Breadcrumb{ID: f.ID, Title: f.Title})

		pid, hasParent := f.Parent.ID()
		if !hasParent {
			break
		}
		next, exists := t.byID[pid]
		if !exists {
			break
		}
		idx = next
	}

	crumbs := make([]models.Breadcrumb, len(reversed))
	for i, c := range reversed {
		crumbs[len(reversed)-1-i] = c
	}
	return crumbs, nil
}

// ChildrenOf returns the direct subfolders of folderID followed by the
// documents it contains. Folders are ordered by title, documents by file
// name. Every entry is a copy.
func (t *Tree) ChildrenOf(folderID models.FolderRef) []models.Entry {
	subs := t.subfolders[folderID]
	docs := t.documentsIn[folderID]

	entries := make([]models.Entry, 0, len(subs)+len(docs))
	for _, i := range subs {
		entries = append(entries, models.FolderEntry(t.folders[i]))
	}
	for _, i := range docs {
		entries = append(entries, models.DocumentEntryOf(t.documents[i]))
	}
	return entries
}

// Subfolders returns the direct subfolders of folderID ordered by title.
func (t *Tree) Subfolders(folderID models.FolderRef) []models.FolderNode {
	subs := t.subfolders[folderID]
	out := make([]models.FolderNode, len(subs))
	for n, i := range subs {
		out[n] = t.folders[i]
	}
	return out
}

// Entries returns every folder and document once, keyed by (kind, id).
// This is the candidate set for a global search.
func (t *Tree) Entries() []models.Entry {
	entries := make([]models.Entry, 0, len(t.folders)+len(t.documents))
	for _, f := range t.folders {
		entries = append(entries, models.FolderEntry(f))
	}
	for _, d := range t.documents {
		entries = append(entries, models.DocumentEntryOf(d))
	}
	return entries
}

// Folder looks up a folder by id.
func (t *Tree) Folder(id int64) (models.FolderNode, bool) {
	i, ok := t.byID[id]
	if !ok {
		return models.FolderNode{}, false
	}
	return t.folders[i], true
}

// FolderTitle returns the title of the folder a reference points at, or ""
// for the root and unknown folders.
func (t *Tree) FolderTitle(ref models.FolderRef) string {
	id, ok := ref.ID()
	if !ok {
		return ""
	}
	f, _ := t.Folder(id)
	return f.Title
}

// Len returns the number of folders and documents in the tree.
func (t *Tree) Len() (folders, documents int) {
	return len(t.folders), len(t.documents)
}
