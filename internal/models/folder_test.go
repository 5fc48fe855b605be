package models

import (
	"encoding/json"
	"testing"
)

func TestFolderRefUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantID   int64
		wantRoot bool
	}{
		{"null", `null`, 0, true},
		{"number", `42`, 42, false},
		{"zero is root", `0`, 0, true},
		{"numeric string", `"17"`, 17, false},
		{"empty string", `""`, 0, true},
		{"nested object", `{"id": 9, "title": "Receipts"}`, 9, false},
		{"nested object with string id", `{"id": "11"}`, 11, false},
		{"nested object null id", `{"id": null}`, 0, true},
		{"nested object without id", `{"title": "x"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref FolderRef
			if err := json.Unmarshal([]byte(tt.input), &ref); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if ref.IsRoot() != tt.wantRoot {
				t.Errorf("IsRoot() = %v, want %v", ref.IsRoot(), tt.wantRoot)
			}
			if id, _ := ref.ID(); id != tt.wantID {
				t.Errorf("ID() = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestFolderRefUnmarshalRejectsGarbage(t *testing.T) {
	for _, input := range []string{`"abc"`, `true`, `{"id": "x"}`} {
		var ref FolderRef
		if err := json.Unmarshal([]byte(input), &ref); err == nil {
			t.Errorf("Unmarshal(%s) expected error, got ref %v", input, ref)
		}
	}
}

func TestFolderNodeDecodesNestedParent(t *testing.T) {
	payload := `{"id": 5, "title": "2024", "parent": {"id": 2, "title": "Taxes"}}`

	var node FolderNode
	if err := json.Unmarshal([]byte(payload), &node); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !node.Parent.Equal(RefTo(2)) {
		t.Errorf("Parent = %v, want 2", node.Parent)
	}

	out, err := json.Marshal(node.Parent)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != "2" {
		t.Errorf("Marshal(parent) = %s, want 2", out)
	}
}

func TestParseFolderRef(t *testing.T) {
	for _, s := range []string{"", "root", "ROOT", "0", "  "} {
		ref, err := ParseFolderRef(s)
		if err != nil || !ref.IsRoot() {
			t.Errorf("ParseFolderRef(%q) = %v, %v; want root", s, ref, err)
		}
	}

	ref, err := ParseFolderRef("123")
	if err != nil {
		t.Fatalf("ParseFolderRef error = %v", err)
	}
	if ref.String() != "123" {
		t.Errorf("String() = %q, want 123", ref.String())
	}

	if _, err := ParseFolderRef("twelve"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestDateParsing(t *testing.T) {
	d, err := ParseDate("2024-04-15")
	if err != nil {
		t.Fatalf("ParseDate error = %v", err)
	}
	ts, err := ParseDate("2024-04-15T18:30:00-05:00")
	if err != nil {
		t.Fatalf("ParseDate(RFC3339) error = %v", err)
	}
	if d.String() != "2024-04-15" || ts.String() != "2024-04-15" {
		t.Errorf("dates = %s, %s; want 2024-04-15", d, ts)
	}
	if d.Before(ts) || ts.Before(d) {
		t.Error("same calendar day must not compare as before")
	}
	if _, err := ParseDate("04/15/2024"); err == nil {
		t.Error("expected error for US-style date")
	}
}

func TestEntryKeysDistinguishKinds(t *testing.T) {
	folder := FolderEntry(FolderNode{ID: 7, Title: "Receipts"})
	doc := DocumentEntryOf(DocumentEntry{ID: 7, FileName: "w2.pdf"})

	if folder.Key() == doc.Key() {
		t.Fatalf("folder and document with the same id share key %v", folder.Key())
	}
	if !folder.IsFolder || doc.IsFolder {
		t.Error("IsFolder discriminator not set correctly")
	}
}

func TestEntryCloneDoesNotAlias(t *testing.T) {
	due, _ := ParseDate("2024-01-31")
	orig := DocumentEntryOf(DocumentEntry{ID: 1, Category: &Category{Name: "W-2"}, DueDate: &due})

	clone := orig.Clone()
	clone.Document.IsArchived = true
	clone.Document.Category.Name = "1099"

	if orig.Document.IsArchived {
		t.Error("clone mutation leaked into original archived flag")
	}
	if orig.Document.Category.Name != "W-2" {
		t.Error("clone mutation leaked into original category")
	}
}
