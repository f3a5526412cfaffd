package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/skim"
	bt "github.com/fwojciec/skim/bubbletea"
	"github.com/fwojciec/skim/token"
	"github.com/spf13/cobra"
)

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	opts := &rootOptions{lookup: lookup}
	root := &cobra.Command{
		Use:   "skim",
		Short: "Summarize articles from the terminal",
		Long: `skim summarizes web articles with the summarizer service and keeps
your summary history in sync between the service and a local cache.

Run without a command to open the interactive TUI.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the config file (default ~/.config/skim/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Open the interactive TUI (the default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTUI(cmd, opts)
			},
		},
		newHistoryCmd(opts),
		newShowCmd(opts),
		newSummarizeCmd(opts),
		newRenameCmd(opts),
		newDeleteCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
	)
	return root
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	a, err := openApp(cmd, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.controller.Restore()
	m := bt.New(bt.App{
		Registry:   a.registry,
		Reconciler: a.reconciler,
		Controller: a.controller,
		Logout:     a.logout,
	}, skim.DefaultTheme())
	if err := bt.Run(cmd.Context(), m); err != nil {
		return a.handle(err)
	}
	return nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store the bearer token used for requests",
		Long: `Store a bearer token issued by the summarizer's sign-in page. With no
argument the token is read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			var tok string
			if len(args) == 1 {
				tok = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read token: %w", err)
				}
				tok = line
			}
			if err := token.Save(cfg.TokenFile, tok); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token saved to %s\n", cfg.TokenFile)
			if cfg.Token != "" {
				fmt.Fprintln(out, "Note: SKIM_TOKEN is set and takes precedence over the saved token.")
			}
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token and forget the open session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// titleArg joins the remaining arguments so titles need no quoting.
func titleArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
