// Package bubbletea provides a Bubble Tea TUI for skim: a history sidebar,
// the open conversation and a URL input.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/skim"
)

// App holds the engine the TUI drives.
type App struct {
	Registry   *skim.Registry
	Reconciler *skim.Reconciler
	Controller *skim.Controller
	// Logout is called once when the service rejects the credentials, after
	// the current-session pointer has been cleared. It typically removes
	// the stored token.
	Logout func()
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits and returns the error that ended the session, if any. The context is
// used for graceful shutdown; when cancelled, the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}

// EventMsg wraps a reconciler event for delivery to the Bubble Tea model.
type EventMsg struct {
	Event skim.Event
}

// LoadedMsg signals that a history load finished.
type LoadedMsg struct {
	Err error
}

// SubmitDoneMsg signals that a URL submission finished.
type SubmitDoneMsg struct {
	Session skim.Session
	Err     error
}

// ActionDoneMsg signals that a rename or delete finished.
type ActionDoneMsg struct {
	Op  skim.Op
	ID  skim.SessionID
	Err error
}

type toastExpiredMsg struct {
	seq int
}
