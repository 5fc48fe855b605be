package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FolderRef is a normalized reference to a parent folder.
// The zero value is the library root (no parent).
//
// Portal payloads are inconsistent about how they send parents: a raw id,
// a numeric string, null, or a nested folder object. UnmarshalJSON accepts
// all of them and always stores a plain id.
type FolderRef struct {
	id  int64
	set bool
}

// RootRef returns the reference to the library root.
func RootRef() FolderRef { return FolderRef{} }

// RefTo returns a reference to the folder with the given id.
func RefTo(id int64) FolderRef { return FolderRef{id: id, set: true} }

// ID returns the referenced folder id and whether the reference is set.
func (r FolderRef) ID() (int64, bool) { return r.id, r.set }

// IsRoot reports whether the reference points at the library root.
func (r FolderRef) IsRoot() bool { return !r.set }

// Equal compares two references after normalization.
func (r FolderRef) Equal(other FolderRef) bool {
	if r.set != other.set {
		return false
	}
	return !r.set || r.id == other.id
}

// String renders the reference for logs and query strings ("" for root).
func (r FolderRef) String() string {
	if !r.set {
		return ""
	}
	return strconv.FormatInt(r.id, 10)
}

// ParseFolderRef parses a CLI/query style folder id. Empty, "root" and "0" mean root.
func ParseFolderRef(s string) (FolderRef, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "root") || s == "0" {
		return RootRef(), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return FolderRef{}, fmt.Errorf("invalid folder id %q: %w", s, err)
	}
	return RefTo(id), nil
}

// MarshalJSON writes null for root and the plain id otherwise.
func (r FolderRef) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(r.id, 10)), nil
}

// UnmarshalJSON normalizes every parent representation the portal sends.
func (r *FolderRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RootRef()
		return nil
	}

	switch data[0] {
	case '{':
		var nested struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return fmt.Errorf("invalid folder reference object: %w", err)
		}
		if len(nested.ID) == 0 {
			*r = RootRef()
			return nil
		}
		return r.UnmarshalJSON(nested.ID)

	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := ParseFolderRef(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil

	default:
		id, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid folder reference %s: %w", string(data), err)
		}
		if id == 0 {
			*r = RootRef()
			return nil
		}
		*r = RefTo(id)
		return nil
	}
}

// FolderNode represents a folder in the client's document library.
type FolderNode struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Parent     FolderRef `json:"parent"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Breadcrumb is one ancestor in the navigation path, ordered root first.
type Breadcrumb struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// FolderRequest is the payload for folder create and rename.
type FolderRequest struct {
	Title    string    `json:"title"`
	ParentID FolderRef `json:"parent_id"`
}

// FolderPatch is a partial folder record returned by archive toggles.
type FolderPatch struct {
	Title      *string    `json:"title,omitempty"`
	IsArchived *bool      `json:"is_archived,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Apply merges the non-nil fields of the patch into f.
func (p FolderPatch) Apply(f *FolderNode) {
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.IsArchived != nil {
		f.IsArchived = *p.IsArchived
	}
	if p.UpdatedAt != nil {
		f.UpdatedAt = *p.UpdatedAt
	}
}
