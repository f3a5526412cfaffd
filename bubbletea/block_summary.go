package bubbletea

import (
	"github.com/fwojciec/skim"
	"github.com/fwojciec/skim/goldmark"
)

var _ MessageBlock = (*SummaryBlock)(nil)

// SummaryBlock renders an assistant summary as markdown. Rendering is
// cached per width; summaries never change once received.
type SummaryBlock struct {
	text    string
	theme   skim.Theme
	byWidth map[int]string
}

// NewSummaryBlock creates a SummaryBlock for text.
func NewSummaryBlock(text string, theme skim.Theme) *SummaryBlock {
	return &SummaryBlock{text: text, theme: theme, byWidth: make(map[int]string)}
}

func (b *SummaryBlock) View(width int) string {
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.text, width, b.theme)
	b.byWidth[width] = rendered
	return rendered
}
