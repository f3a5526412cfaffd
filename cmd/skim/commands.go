package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fwojciec/skim"
	"github.com/fwojciec/skim/goldmark"
	skimjson "github.com/fwojciec/skim/json"
	"github.com/spf13/cobra"
)

const dateLayout = "Jan 2, 15:04"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"list", "ls"},
		Short:   "List saved summaries, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Load(cmd.Context()); err != nil {
				return a.handle(err)
			}
			sessions := a.registry.Sessions()
			if asJSON {
				return writeJSONLines(cmd.OutOrStdout(), sessions)
			}
			writeHistory(cmd.OutOrStdout(), sessions, a.registry.Degraded())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON session per line")
	return cmd
}

func writeHistory(w io.Writer, sessions []skim.Session, degraded bool) {
	if degraded {
		fmt.Fprintln(w, pendingStyle.Render("Offline: showing cached history."))
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No summaries yet."))
		return
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "TITLE", "UPDATED", "MSGS", "STATE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return idStyle
			case col == 2:
				return dateStyle
			}
			return lipgloss.NewStyle()
		})
	for _, s := range sessions {
		t.Row(
			displayID(s.ID),
			skim.TruncateTitle(sessionTitle(s), skim.DefaultTitleWidth),
			s.UpdatedAt.Local().Format(dateLayout),
			strconv.Itoa(len(s.Messages)),
			stateLabel(s.SyncState),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func writeJSONLines(w io.Writer, sessions []skim.Session) error {
	for _, s := range sessions {
		data, err := skimjson.MarshalSession(s)
		if err != nil {
			return err
		}
		var line bytes.Buffer
		if err := json.Compact(&line, data); err != nil {
			return err
		}
		line.WriteByte('\n')
		if _, err := w.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func stateLabel(state skim.SyncState) string {
	switch state {
	case skim.SyncPending:
		return pendingStyle.Render("pending")
	case skim.SyncError:
		return errorStyle.Render("not saved")
	case skim.SyncLocalOnly:
		return pendingStyle.Render("local")
	default:
		return "synced"
	}
}

func sessionTitle(s skim.Session) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.URL != "":
		return s.URL
	default:
		return "Untitled"
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the conversation of a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return &engineError{err: err}
			}
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Load(cmd.Context()); err != nil {
				return a.handle(err)
			}
			s, ok := a.registry.Get(id)
			if cached, hit := a.cache.Get(id); hit && (!ok || len(s.Messages) == 0) {
				s, ok = cached, true
			}
			if !ok {
				return &engineError{err: fmt.Errorf("show %s: %w", args[0], skim.ErrNotFound)}
			}
			writeConversation(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func writeConversation(w io.Writer, s skim.Session) {
	theme := skim.DefaultTheme()
	fmt.Fprintln(w, headerStyle.Render(sessionTitle(s)))
	fmt.Fprintln(w, idStyle.Render(displayID(s.ID)+"  "+s.UpdatedAt.Local().Format(dateLayout)))
	for _, msg := range s.Messages {
		fmt.Fprintln(w)
		switch msg.Role {
		case skim.RoleUser:
			fmt.Fprintln(w, urlStyle.Render("> "+msg.Content))
		default:
			fmt.Fprintln(w, goldmark.Render(msg.Content, goldmark.DefaultWidth, theme))
		}
	}
	if s.SyncState == skim.SyncError {
		fmt.Fprintln(w)
		fmt.Fprintln(w, errorStyle.Render("Not saved. Submit the URL again to retry."))
	}
}

func newSummarizeCmd(opts *rootOptions) *cobra.Command {
	var sessionArg string
	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize an article, optionally continuing a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := skim.ValidateURL(args[0]); err != nil {
				return &engineError{err: err}
			}
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Load(cmd.Context()); err != nil {
				return a.handle(err)
			}
			if sessionArg != "" {
				id, err := parseID(sessionArg)
				if err != nil {
					return &engineError{err: err}
				}
				if err := a.controller.OpenID(id); err != nil {
					return a.handle(err)
				}
			} else {
				a.controller.StartNew()
			}

			s, err := a.controller.Submit(cmd.Context(), args[0])
			if err != nil {
				return a.handle(err)
			}
			out := cmd.OutOrStdout()
			if last, ok := s.LastMessage(); ok && last.Role == skim.RoleAssistant {
				fmt.Fprintln(out, goldmark.Render(last.Content, goldmark.DefaultWidth, skim.DefaultTheme()))
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, successStyle.Render("Summary generated!")+" "+idStyle.Render(displayID(s.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionArg, "session", "", "Continue the summary with this id")
	return cmd
}

func newRenameCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a saved summary",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return &engineError{err: err}
			}
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Load(cmd.Context()); err != nil {
				return a.handle(err)
			}
			if err := a.reconciler.Rename(cmd.Context(), id, titleArg(args[1:])); err != nil {
				return a.handle(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Summary renamed."))
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a summary",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return &engineError{err: err}
			}
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Load(cmd.Context()); err != nil {
				return a.handle(err)
			}
			if err := a.reconciler.Delete(cmd.Context(), id); err != nil {
				return a.handle(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Summary deleted."))
			return nil
		},
	}
}
