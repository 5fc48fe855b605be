package strings

import "testing"

func TestPluralize(t *testing.T) {
	tests := []struct {
		word  string
		count int64
		want  string
	}{
		{"folder", 0, "folders"},
		{"folder", 1, "folder"},
		{"document", 2, "documents"},
	}
	for _, tt := range tests {
		if got := Pluralize(tt.word, tt.count); got != tt.want {
			t.Errorf("Pluralize(%q, %d) = %q, want %q", tt.word, tt.count, got, tt.want)
		}
	}
}
