// Package goldmark renders summary text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling.
//
// Summaries are mostly prose with the occasional list or quote, so the
// renderer handles the block types that appear in them and falls back to
// plain text for the rest.
package goldmark

import "github.com/fwojciec/skim"

// DefaultWidth is used when the caller passes a non-positive width.
const DefaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output
// word-wrapped to width. Bare URLs are rendered as links.
func Render(source string, width int, theme skim.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return newRenderer(theme, width).render([]byte(source))
}
