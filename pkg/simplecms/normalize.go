package simplecms

import "strings"

// categoryIDDelimiter joins the words of a category name in its id.
const categoryIDDelimiter = "-"

// CategoryID derives a category id from its display name: lower-cased, with
// every run of whitespace collapsed to a single delimiter.
// Example: "New   Idea" -> "new-idea"
func CategoryID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), categoryIDDelimiter)
}
