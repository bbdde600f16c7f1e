// Package privacy keeps private journal text out of anything the companion says back.
package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// privateTagRegex matches <private>...</private> segments of a note.
var privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

// Ellipsis is appended to truncated excerpts.
const Ellipsis = "..."

// StripPrivateTags removes all <private>...</private> content from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// IsEntirelyPrivate reports whether nothing remains once private segments are removed.
func IsEntirelyPrivate(text string) bool {
	return strings.TrimSpace(StripPrivateTags(text)) == ""
}

// Excerpt strips private segments and cuts the rest to at most limit runes,
// adding Ellipsis when cut. Line breaks and spacing are quoted as written.
func Excerpt(text string, limit int) string {
	if IsEntirelyPrivate(text) {
		return ""
	}
	text = StripPrivateTags(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + Ellipsis
}
