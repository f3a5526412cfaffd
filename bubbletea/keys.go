package bubbletea

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Focus   key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	New     key.Binding
	Reload  key.Binding
	Rename  key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "history")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		New:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Reload:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Rename:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "cancel")),
	}
}

func (k keyMap) inputHelp() []key.Binding {
	return []key.Binding{k.Focus, k.New, k.Reload, k.Quit}
}

func (k keyMap) sidebarHelp() []key.Binding {
	return []key.Binding{k.Open, k.Rename, k.Delete, k.New, k.Focus}
}
