// Package format provides shared text formatting utilities for comment
// previews and terminal output.
package format

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// PreviewLength is the maximum number of characters kept from a comment
// body before the ellipsis is appended.
const PreviewLength = 100

// whitespaceRegex matches runs of whitespace, including newlines.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces every run of whitespace (spaces, tabs,
// newlines) with a single space and trims the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Preview builds a one-line snippet of a comment body: whitespace is
// collapsed and the text is cut at PreviewLength characters with "..."
// appended when anything was dropped.
func Preview(body string) string {
	collapsed := CollapseWhitespace(body)
	runes := []rune(collapsed)
	if len(runes) <= PreviewLength {
		return collapsed
	}
	return string(runes[:PreviewLength]) + "..."
}

// DisplayWidth returns the visible width of a string in terminal columns,
// accounting for wide characters which take 2 columns.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts a string to fit within maxWidth display columns,
// appending "..." when truncation occurs.
func Truncate(s string, maxWidth int) string {
	if DisplayWidth(s) <= maxWidth {
		return s
	}
	target := maxWidth - 3
	if target < 0 {
		target = 0
	}
	var b strings.Builder
	width := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if width+rw > target {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	return b.String() + "..."
}

// PadRight pads a string with spaces to reach the target visible width.
func PadRight(s string, targetWidth int) string {
	width := DisplayWidth(s)
	if width >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-width)
}
