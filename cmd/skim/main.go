// Command skim is a terminal client for the article summarizer.
//
// Usage:
//
//	skim [flags]                      open the TUI
//	skim history [--json]             list saved summaries
//	skim show <id>                    print a conversation
//	skim summarize <url> [--session id]
//	skim rename <id> <title>
//	skim delete <id>
//	skim login [token]                store a bearer token
//	skim logout
//
// Flags:
//
//	--config string   Path to the config file (default ~/.config/skim/config.yaml)
//	-v, --verbose     Log at debug level
//
// Environment variables SKIM_BASE_URL, SKIM_TOKEN, SKIM_TOKEN_FILE,
// SKIM_CACHE_DRIVER, SKIM_CACHE_PATH and SKIM_LOG_LEVEL override the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fwojciec/skim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "skim: %s\n", message(err))
		os.Exit(1)
	}
}

func run() error {
	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd(os.LookupEnv).ExecuteContext(ctx)
}

// engineError marks a failure reported by the sync engine, which is shown to
// the user as its fixed message rather than the wrapped chain.
type engineError struct {
	err error
}

func (e *engineError) Error() string { return e.err.Error() }

func (e *engineError) Unwrap() error { return e.err }

// message returns the text printed for a failed command.
func message(err error) string {
	var e *engineError
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := skim.ErrorMessage(e.err)
	if errors.Is(err, skim.ErrAuth) {
		msg += " Run `skim login` to store a new token."
	}
	return msg
}
