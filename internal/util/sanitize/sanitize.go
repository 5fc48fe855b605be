// Package sanitize normalizes user-entered and portal-supplied text before it
// is searched, sent or printed.
//
// This package removes problematic characters:
//   - Invisible Unicode characters (zero-width spaces, BOM, etc.)
//   - Control characters that would move the terminal cursor
//   - Runs of whitespace, including line breaks, in single-line values
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// invisibleChars are stripped everywhere.
var invisibleChars = []string{
	"\u200B", // Zero-width space
	"\u200C", // Zero-width non-joiner
	"\u200D", // Zero-width joiner
	"\uFEFF", // Zero-width no-break space (BOM)
	"\u00AD", // Soft hyphen
	"\u2060", // Word joiner
	"\u180E", // Mongolian vowel separator
}

// Title normalizes a folder title: invisible characters removed, any run of
// whitespace (tabs and line breaks included) collapsed to one space, trimmed.
func Title(s string) string {
	if s == "" {
		return s
	}
	s = removeInvisibleChars(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Term normalizes a search term the same way as a title, so a term pasted
// from a PDF or an e-mail matches what the list displays.
func Term(s string) string {
	return Title(s)
}

// Display makes a portal-supplied value safe to print on one terminal line.
// Control characters become spaces; invisible characters are removed.
func Display(s string) string {
	if s == "" {
		return s
	}
	s = removeInvisibleChars(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
