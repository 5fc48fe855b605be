// Package strings provides string utility functions.
package strings

// Pluralize returns singular or plural form based on count.
// Example: Pluralize("folder", 1) returns "folder", Pluralize("folder", 2) returns "folders"
func Pluralize(word string, count int64) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
