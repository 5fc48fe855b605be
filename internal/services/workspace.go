package services

import (
	"sync"

	"github.com/taxdesk/portal-client/internal/models"
)

// Workspace is the list the user is looking at plus the entry open in the
// preview pane. Entries are stored as deep copies; callers never alias them.
type Workspace struct {
	mu      sync.RWMutex
	entries []models.Entry
	preview *models.Entry
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// SetEntries replaces the list. The preview selection is kept.
func (w *Workspace) SetEntries(entries []models.Entry) {
	cp := make([]models.Entry, len(entries))
	for i, e := range entries {
		cp[i] = e.Clone()
	}
	w.mu.Lock()
	w.entries = cp
	w.mu.Unlock()
}

// Entries returns a copy of the list.
func (w *Workspace) Entries() []models.Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.Entry, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.Clone()
	}
	return out
}

// Find returns a copy of the list entry with key.
func (w *Workspace) Find(key models.EntryKey) (models.Entry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if i := w.indexLocked(key); i >= 0 {
		return w.entries[i].Clone(), true
	}
	return models.Entry{}, false
}

// Select opens the list entry with key in the preview pane.
func (w *Workspace) Select(key models.EntryKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexLocked(key)
	if i < 0 {
		return false
	}
	e := w.entries[i].Clone()
	w.preview = &e
	return true
}

// Preview returns a copy of the previewed entry.
func (w *Workspace) Preview() (models.Entry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.preview == nil {
		return models.Entry{}, false
	}
	return w.preview.Clone(), true
}

// Remove drops the entry with key from the list and closes the preview if
// it shows that entry.
func (w *Workspace) Remove(key models.EntryKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.indexLocked(key); i >= 0 {
		w.entries = append(w.entries[:i], w.entries[i+1:]...)
	}
	if w.preview != nil && w.preview.Key() == key {
		w.preview = nil
	}
}

// snapshot is the state of one key in the list and the preview.
type snapshot struct {
	key     models.EntryKey
	listed  *models.Entry
	preview *models.Entry
}

func (w *Workspace) snapshot(key models.EntryKey) snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := snapshot{key: key}
	if i := w.indexLocked(key); i >= 0 {
		e := w.entries[i].Clone()
		s.listed = &e
	}
	if w.preview != nil && w.preview.Key() == key {
		e := w.preview.Clone()
		s.preview = &e
	}
	return s
}

// restore puts back the records captured by snapshot. Entries that have
// since left the list are not re-added.
func (w *Workspace) restore(s snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.listed != nil {
		if i := w.indexLocked(s.key); i >= 0 {
			w.entries[i] = s.listed.Clone()
		}
	}
	if s.preview != nil && w.preview != nil && w.preview.Key() == s.key {
		e := s.preview.Clone()
		w.preview = &e
	}
}

// update applies fn to the list entry and the preview for key. It returns
// a copy of the updated record (list first, then preview) and whether any
// record matched.
func (w *Workspace) update(key models.EntryKey, fn func(*models.Entry)) (models.Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		out   models.Entry
		found bool
	)
	if w.preview != nil && w.preview.Key() == key {
		fn(w.preview)
		out, found = w.preview.Clone(), true
	}
	if i := w.indexLocked(key); i >= 0 {
		fn(&w.entries[i])
		out, found = w.entries[i].Clone(), true
	}
	return out, found
}

func (w *Workspace) indexLocked(key models.EntryKey) int {
	for i := range w.entries {
		if w.entries[i].Key() == key {
			return i
		}
	}
	return -1
}
