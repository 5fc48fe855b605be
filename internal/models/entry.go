package models

import "fmt"

// EntryKind distinguishes folders from documents in a mixed listing.
type EntryKind string

const (
	KindFolder   EntryKind = "folder"
	KindDocument EntryKind = "document"
)

// EntryKey identifies an entry across kinds. A folder and a document that
// share a numeric id have different keys.
type EntryKey struct {
	Kind EntryKind
	ID   int64
}

func (k EntryKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// FolderKey and DocumentKey are shorthands for building keys.
func FolderKey(id int64) EntryKey   { return EntryKey{Kind: KindFolder, ID: id} }
func DocumentKey(id int64) EntryKey { return EntryKey{Kind: KindDocument, ID: id} }

// Entry is one row of the documents list. Exactly one of Folder or
// Document is set; IsFolder mirrors which.
type Entry struct {
	IsFolder bool           `json:"is_folder"`
	Folder   *FolderNode    `json:"folder,omitempty"`
	Document *DocumentEntry `json:"document,omitempty"`
}

// FolderEntry wraps a folder as a list entry.
func FolderEntry(f FolderNode) Entry {
	return Entry{IsFolder: true, Folder: &f}
}

// DocumentEntryOf wraps a document as a list entry.
func DocumentEntryOf(d DocumentEntry) Entry {
	return Entry{Document: &d}
}

// Key returns the (kind, id) identity of the entry.
func (e Entry) Key() EntryKey {
	if e.IsFolder {
		return FolderKey(e.Folder.ID)
	}
	return DocumentKey(e.Document.ID)
}

// Name returns the folder title or document file name.
func (e Entry) Name() string {
	if e.IsFolder {
		return e.Folder.Title
	}
	return e.Document.FileName
}

// Status returns the document status; folders have none.
func (e Entry) Status() string {
	if e.IsFolder {
		return ""
	}
	return e.Document.Status
}

// Archived reports the archived flag of whichever record is set.
func (e Entry) Archived() bool {
	if e.IsFolder {
		return e.Folder.IsArchived
	}
	return e.Document.IsArchived
}

// Parent returns the folder the entry lives in.
func (e Entry) Parent() FolderRef {
	if e.IsFolder {
		return e.Folder.Parent
	}
	return e.Document.Folder
}

// Clone returns a deep copy so local patches never alias cached records.
func (e Entry) Clone() Entry {
	out := Entry{IsFolder: e.IsFolder}
	if e.Folder != nil {
		f := *e.Folder
		out.Folder = &f
	}
	if e.Document != nil {
		d := *e.Document
		if d.Category != nil {
			c := *d.Category
			d.Category = &c
		}
		if d.DueDate != nil {
			dd := *d.DueDate
			d.DueDate = &dd
		}
		out.Document = &d
	}
	return out
}
