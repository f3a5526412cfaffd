package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// ExpireToast returns the message that clears the current toast.
func ExpireToast(m Model) tea.Msg {
	return toastExpiredMsg{seq: m.toast.seq}
}
