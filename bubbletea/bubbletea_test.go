package bubbletea_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/skim"
	bt "github.com/fwojciec/skim/bubbletea"
	"github.com/fwojciec/skim/memory"
	"github.com/fwojciec/skim/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	app     bt.App
	cache   *memory.Cache
	logouts atomic.Int32
}

func sequence(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

func newFixture(gw *mock.Gateway) *fixture {
	f := &fixture{cache: memory.New()}
	opts := []skim.Option{
		skim.WithClock(func() time.Time { return t0 }),
		skim.WithIDGenerator(sequence("p")),
	}
	reg := skim.NewRegistry(gw, f.cache, opts...)
	rec := skim.NewReconciler(gw, reg, f.cache, opts...)
	f.app = bt.App{
		Registry:   reg,
		Reconciler: rec,
		Controller: skim.NewController(rec, reg, f.cache, opts...),
		Logout:     func() { f.logouts.Add(1) },
	}
	return f
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, f *fixture) bt.Model {
	t.Helper()
	m := bt.New(f.app, skim.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	m, _ = update(t, m, msg)
	return m
}

func update(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

// first runs cmd and returns its message. For a batch it runs only the first
// command, which is the one doing the work in every batch the model returns.
func first(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		require.NotEmpty(t, batch)
		return first(t, batch[0])
	}
	return msg
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func confirmed(id, title string, msgs int) skim.Session {
	s := skim.Session{
		ID:        skim.ConfirmedID(id),
		Title:     title,
		URL:       "https://example.com/" + id,
		CreatedAt: t0,
		UpdatedAt: t0,
		SyncState: skim.SyncSynced,
	}
	for i := range msgs {
		role := skim.RoleUser
		content := s.URL
		if i%2 == 1 {
			role = skim.RoleAssistant
			content = "Summary of " + id
		}
		s.Messages = append(s.Messages, skim.Message{
			ID:        fmt.Sprintf("%s-%d", id, i),
			Role:      role,
			Content:   content,
			Timestamp: t0.Add(time.Duration(i) * time.Second),
		})
	}
	return s
}

func noHistory(ctx context.Context) ([]skim.Session, error) {
	return nil, nil
}
