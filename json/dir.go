package json

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/skim"
	"github.com/rs/zerolog"
)

var _ skim.Cache = (*Dir)(nil)

const (
	fileExt     = ".json"
	currentFile = "current"

	// sessionGlob matches session files in both key spaces.
	sessionGlob = "{local,remote}-*" + fileExt
)

// Dir is a skim.Cache storing one JSON file per session, named after the
// session's storage key, plus a pointer file naming the open session.
// Unreadable entries are logged and treated as absent.
type Dir struct {
	root   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// Option configures a Dir.
type Option func(*Dir)

// WithLogger sets the logger used to report skipped entries.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dir) { d.logger = l }
}

// NewDir creates a Dir rooted at root. The directory is created on the
// first write.
func NewDir(root string, opts ...Option) *Dir {
	d := &Dir{root: root, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// path escapes the key, so a server id can never name a file outside root.
func (d *Dir) path(id skim.SessionID) string {
	return filepath.Join(d.root, url.PathEscape(skim.Key(id))+fileExt)
}

func keyFromFile(name string) (skim.SessionID, error) {
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return nil, err
	}
	return skim.ParseKey(key)
}

// Get returns the cached session with the given id.
func (d *Dir) Get(id skim.SessionID) (skim.Session, bool) {
	if id == nil {
		return skim.Session{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(id)
}

func (d *Dir) load(id skim.SessionID) (skim.Session, bool) {
	s, err := Load(d.path(id))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn().Err(err).Str("key", skim.Key(id)).Msg("ignoring unreadable cache entry")
		}
		return skim.Session{}, false
	}
	if !skim.SameID(s.ID, id) {
		d.logger.Warn().Str("key", skim.Key(id)).Str("stored", skim.Key(s.ID)).Msg("ignoring mismatched cache entry")
		return skim.Session{}, false
	}
	return s, true
}

// Put stores s under id, replacing any previous entry.
func (d *Dir) Put(id skim.SessionID, s skim.Session) error {
	if id == nil || !skim.SameID(id, s.ID) {
		return fmt.Errorf("put %s: session id does not match key: %w", skim.Key(id), skim.ErrValidation)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := Save(d.path(id), s); err != nil {
		return fmt.Errorf("put %s: %w", skim.Key(id), err)
	}
	return nil
}

// Remove deletes the entry for id. Removing a missing entry is not an error.
func (d *Dir) Remove(id skim.SessionID) error {
	if id == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(d.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", skim.Key(id), err)
	}
	return nil
}

// List returns every readable cached session.
func (d *Dir) List() []skim.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := doublestar.Glob(os.DirFS(d.root), sessionGlob)
	if err != nil {
		d.logger.Warn().Err(err).Str("root", d.root).Msg("list cache")
		return nil
	}
	var out []skim.Session
	for _, name := range names {
		id, err := keyFromFile(name)
		if err != nil {
			d.logger.Debug().Str("file", name).Msg("skipping unrecognized cache file")
			continue
		}
		if s, ok := d.load(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// Current returns the id stored in the pointer file.
func (d *Dir) Current() (skim.SessionID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(d.root, currentFile))
	if err != nil {
		return nil, false
	}
	id, err := skim.ParseKey(strings.TrimSpace(string(data)))
	if err != nil {
		d.logger.Warn().Err(err).Msg("ignoring corrupt current session pointer")
		return nil, false
	}
	return id, true
}

// SetCurrent replaces the pointer file. A nil id removes it.
func (d *Dir) SetCurrent(id skim.SessionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	path := filepath.Join(d.root, currentFile)
	if id == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear current session: %w", err)
		}
		return nil
	}
	if err := writeFile(path, []byte(skim.Key(id)+"\n")); err != nil {
		return fmt.Errorf("set current session: %w", err)
	}
	return nil
}
