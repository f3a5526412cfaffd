package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a one-line status note under the conversation, such
// as a failed or in-flight request.
type NoticeBlock struct {
	text  string
	style lipgloss.Style
}

// NewErrorBlock creates a NoticeBlock styled as an error.
func NewErrorBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, style: styles.Error}
}

// NewPendingBlock creates a NoticeBlock styled as in flight.
func NewPendingBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, style: styles.Pending}
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.style.Render(b.text))
}
