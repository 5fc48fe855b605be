package sanitize

import (
	"testing"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Windows line endings (CRLF)",
			input:    "2023\r\nReturns",
			expected: "2023 Returns",
		},
		{
			name:     "Zero-width space",
			input:    "W\u200B-2",
			expected: "W-2",
		},
		{
			name:     "BOM (zero-width no-break space)",
			input:    "\uFEFFReceipts",
			expected: "Receipts",
		},
		{
			name:     "Soft hyphen",
			input:    "Invest\u00ADments",
			expected: "Investments",
		},
		{
			name:     "Multiple spaces and tabs",
			input:    "Tax  \t Year   2023",
			expected: "Tax Year 2023",
		},
		{
			name:     "Trim both",
			input:    "  Receipts  ",
			expected: "Receipts",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only whitespace",
			input:    "   \t\n   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Title(tt.input); result != tt.expected {
				t.Errorf("Title() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestTermMatchesTitle(t *testing.T) {
	if got := Term(" 1099\u200B-INT \n"); got != "1099-INT" {
		t.Errorf("Term() = %q", got)
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain.pdf", "plain.pdf"},
		{"evil\x1b[2Jname.pdf", "evil [2Jname.pdf"},
		{"two\nlines", "two lines"},
		{"zero\u200Bwidth", "zerowidth"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Display(tt.input); got != tt.expected {
			t.Errorf("Display(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRemoveInvisibleChars(t *testing.T) {
	input := "\u200B\u200C\u200D\uFEFF\u00ADtest\u2060\u180E"
	if result := removeInvisibleChars(input); result != "test" {
		t.Errorf("removeInvisibleChars() = %q, want %q", result, "test")
	}
}
