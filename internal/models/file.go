package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Category is the document category assigned by the practice (e.g. "W-2", "1099").
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DocumentEntry represents a file stored in the client's document library.
type DocumentEntry struct {
	ID            int64     `json:"id"`
	Folder        FolderRef `json:"folder"`
	FileName      string    `json:"file_name"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Status        string    `json:"status"`
	Category      *Category `json:"category,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsArchived    bool      `json:"is_archived"`
	FileURL       string    `json:"file_url"`
	DueDate       *Date     `json:"due_date,omitempty"`

	// Optional enrichment some payloads carry; never required.
	FolderTitle  string `json:"folder_title,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

// Extension returns the lower-cased file extension without the dot.
func (d *DocumentEntry) Extension() string {
	ext := filepath.Ext(d.FileName)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// CategoryName returns the category name or "".
func (d *DocumentEntry) CategoryName() string {
	if d.Category == nil {
		return ""
	}
	return d.Category.Name
}

// DocumentPatch is a partial document record returned by archive toggles.
type DocumentPatch struct {
	Status     *string    `json:"status,omitempty"`
	IsArchived *bool      `json:"is_archived,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	FileURL    *string    `json:"file_url,omitempty"`
}

// Apply merges the non-nil fields of the patch into d.
func (p DocumentPatch) Apply(d *DocumentEntry) {
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.IsArchived != nil {
		d.IsArchived = *p.IsArchived
	}
	if p.UpdatedAt != nil {
		d.UpdatedAt = *p.UpdatedAt
	}
	if p.FileURL != nil {
		d.FileURL = *p.FileURL
	}
}

// Statistics is the aggregate strip returned alongside a folder's documents.
type Statistics struct {
	Total     int `json:"total_documents"`
	Pending   int `json:"pending_signatures"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`

	// Uploaded is optional enrichment; when absent it is derived as the
	// count of non-folder documents in scope.
	Uploaded *int `json:"uploaded,omitempty"`
}

// UploadedOr returns the backend's uploaded count, or fallback when absent.
func (s Statistics) UploadedOr(fallback int) int {
	if s.Uploaded != nil {
		return *s.Uploaded
	}
	return fallback
}
