package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fwojciec/skim"
	"github.com/fwojciec/skim/config"
	skimjson "github.com/fwojciec/skim/json"
	skimlog "github.com/fwojciec/skim/log"
	"github.com/fwojciec/skim/memory"
	"github.com/fwojciec/skim/rest"
	"github.com/fwojciec/skim/sqlite"
	"github.com/fwojciec/skim/token"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultTUILog keeps log output off the alternate screen.
const defaultTUILog = "~/.local/state/skim/skim.log"

// rootOptions are the persistent flags plus the environment lookup.
type rootOptions struct {
	configPath string
	verbose    bool
	lookup     func(string) (string, bool)
}

// app is the wired engine for one command invocation.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	cache      skim.Cache
	registry   *skim.Registry
	reconciler *skim.Reconciler
	controller *skim.Controller
	closers    []io.Closer
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.lookup)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openApp loads configuration and wires the gateway, cache and engine. The
// TUI logs to a file unless one is configured, so output does not corrupt
// the screen.
func openApp(cmd *cobra.Command, opts *rootOptions, tui bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if tui && cfg.Log.File == "" {
		if cfg.Log.File, err = config.ExpandHome(defaultTUILog); err != nil {
			return nil, err
		}
	}

	logger, logCloser, err := skimlog.New(cfg.Log,
		skimlog.WithOutput(cmd.ErrOrStderr()),
		skimlog.WithVerbose(opts.verbose),
	)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	cache, cacheCloser, err := openCache(cfg.Cache, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if cacheCloser != nil {
		a.closers = append(a.closers, cacheCloser)
	}
	a.cache = cache

	src := token.Optional(token.FromFile(cfg.TokenFile))
	if cfg.Token != "" {
		src = token.Static(cfg.Token)
	}
	gateway := rest.New(rest.Config{
		BaseURL: cfg.BaseURL,
		Token:   token.Checked(src, time.Now),
	}, rest.WithLogger(logger))

	a.registry = skim.NewRegistry(gateway, cache, skim.WithLogger(logger))
	a.reconciler = skim.NewReconciler(gateway, a.registry, cache, skim.WithLogger(logger))
	a.controller = skim.NewController(a.reconciler, a.registry, cache, skim.WithLogger(logger))

	logger.Debug().
		Str("base_url", cfg.BaseURL).
		Str("cache", cfg.Cache.Driver).
		Msg("skim started")
	return a, nil
}

func openCache(cfg config.CacheConfig, logger zerolog.Logger) (skim.Cache, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		c, err := sqlite.Open(cfg.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.DriverDir:
		return skimjson.NewDir(cfg.Path, skimjson.WithLogger(logger)), nil, nil
	default:
		return memory.New(), nil, nil
	}
}

// Close releases the cache and the log file, in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// logout signs the user out locally: the open session is forgotten and a
// stored token removed. A token from the environment is left alone.
func (a *app) logout() {
	a.controller.StartNew()
	if a.cfg.Token != "" {
		return
	}
	if err := token.Clear(a.cfg.TokenFile); err != nil {
		a.logger.Warn().Err(err).Msg("clear token")
	}
}

// handle converts an engine failure for display, signing out when the
// service rejected the credentials.
func (a *app) handle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, skim.ErrAuth) {
		a.logout()
	}
	return &engineError{err: err}
}

// parseID accepts a storage key (local-… or remote-…) or a bare server id.
func parseID(arg string) (skim.SessionID, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("empty session id: %w", skim.ErrValidation)
	}
	if id, err := skim.ParseKey(arg); err == nil {
		return id, nil
	}
	return skim.ConfirmedID(arg), nil
}

// displayID is the inverse of parseID.
func displayID(id skim.SessionID) string {
	if skim.IsConfirmed(id) {
		return id.String()
	}
	return skim.Key(id)
}
