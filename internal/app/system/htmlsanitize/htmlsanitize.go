// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips markup from user text before it is stored.
package htmlsanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every tag. bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// PlainText removes all markup from s and returns the remaining text as the
// user typed it. bluemonday escapes the characters it keeps, so the escapes
// are undone; the result is plain text, not HTML, and must be escaped by
// whatever renders it.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}
