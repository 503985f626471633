package content

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s and collapses whitespace.
func PlainText(s string) string {
	text := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// Preview returns at most n runes of the plain text of s, with "..." appended
// when it was cut.
func Preview(s string, n int) string {
	text := PlainText(s)
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
