package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*UserMessageBlock)(nil)

// UserMessageBlock renders a submitted article URL with a "> " prefix.
type UserMessageBlock struct {
	url    string
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(url string, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{url: url, styles: styles}
}

func (b *UserMessageBlock) View(width int) string {
	content := b.styles.UserMsg.Render("> ") + b.url
	return lipgloss.NewStyle().Width(width).Render(content)
}
