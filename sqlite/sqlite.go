// Package sqlite provides a skim.Cache backed by a single SQLite key/value
// table. Values are the same versioned JSON envelopes the json package
// writes to disk.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/skim"
	skimjson "github.com/fwojciec/skim/json"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

var _ skim.Cache = (*Cache)(nil)

const (
	sessionPrefix = "session:"
	currentKey    = "current"

	schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
)

// Cache is a skim.Cache stored in SQLite.
type Cache struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report skipped rows and write failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
func Open(path string, opts ...Option) (*Cache, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	c := &Cache{db: db, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func sessionKey(id skim.SessionID) string {
	return sessionPrefix + skim.Key(id)
}

// Get returns the cached session with the given id.
func (c *Cache) Get(id skim.SessionID) (skim.Session, bool) {
	if id == nil {
		return skim.Session{}, false
	}
	value, ok := c.read(sessionKey(id))
	if !ok {
		return skim.Session{}, false
	}
	s, err := skimjson.UnmarshalSession([]byte(value))
	if err != nil {
		c.logger.Warn().Err(err).Str("key", skim.Key(id)).Msg("ignoring unreadable cache entry")
		return skim.Session{}, false
	}
	if !skim.SameID(s.ID, id) {
		c.logger.Warn().Str("key", skim.Key(id)).Str("stored", skim.Key(s.ID)).Msg("ignoring mismatched cache entry")
		return skim.Session{}, false
	}
	return s, true
}

// Put stores s under id, replacing any previous entry.
func (c *Cache) Put(id skim.SessionID, s skim.Session) error {
	if id == nil || !skim.SameID(id, s.ID) {
		return fmt.Errorf("put %s: session id does not match key: %w", skim.Key(id), skim.ErrValidation)
	}
	data, err := skimjson.MarshalSession(s)
	if err != nil {
		return fmt.Errorf("put %s: %w", skim.Key(id), err)
	}
	if err := c.write(sessionKey(id), string(data)); err != nil {
		return fmt.Errorf("put %s: %w", skim.Key(id), err)
	}
	return nil
}

// Remove deletes the entry for id. Removing a missing entry is not an error.
func (c *Cache) Remove(id skim.SessionID) error {
	if id == nil {
		return nil
	}
	if _, err := c.db.Exec("DELETE FROM kv WHERE key = ?", sessionKey(id)); err != nil {
		return fmt.Errorf("remove %s: %w", skim.Key(id), err)
	}
	return nil
}

// List returns every readable cached session.
func (c *Cache) List() []skim.Session {
	rows, err := c.db.Query("SELECT key, value FROM kv WHERE key LIKE ?", sessionPrefix+"%")
	if err != nil {
		c.logger.Warn().Err(err).Msg("list cache")
		return nil
	}
	defer rows.Close()

	var out []skim.Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			c.logger.Warn().Err(err).Msg("scan cache row")
			continue
		}
		id, err := skim.ParseKey(strings.TrimPrefix(key, sessionPrefix))
		if err != nil {
			c.logger.Debug().Str("key", key).Msg("skipping unrecognized cache row")
			continue
		}
		s, err := skimjson.UnmarshalSession([]byte(value))
		if err != nil || !skim.SameID(s.ID, id) {
			c.logger.Warn().Err(err).Str("key", key).Msg("ignoring unreadable cache entry")
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("rows iteration error")
	}
	return out
}

// Current returns the id stored under the pointer key.
func (c *Cache) Current() (skim.SessionID, bool) {
	value, ok := c.read(currentKey)
	if !ok {
		return nil, false
	}
	id, err := skim.ParseKey(value)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring corrupt current session pointer")
		return nil, false
	}
	return id, true
}

// SetCurrent replaces the pointer. A nil id clears it.
func (c *Cache) SetCurrent(id skim.SessionID) error {
	if id == nil {
		if _, err := c.db.Exec("DELETE FROM kv WHERE key = ?", currentKey); err != nil {
			return fmt.Errorf("clear current session: %w", err)
		}
		return nil
	}
	if err := c.write(currentKey, skim.Key(id)); err != nil {
		return fmt.Errorf("set current session: %w", err)
	}
	return nil
}

func (c *Cache) read(key string) (string, bool) {
	var value string
	err := c.db.QueryRowContext(context.Background(), "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn().Err(err).Str("key", key).Msg("read cache")
		}
		return "", false
	}
	return value, true
}

func (c *Cache) write(key, value string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, c.now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
