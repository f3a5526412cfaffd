// Package memory provides an in-process skim.Cache. Entries are stored as
// encoded envelopes, so the cache exercises the same codec as the durable
// implementations and hands out copies that share nothing with callers.
package memory

import (
	"fmt"
	"sync"

	"github.com/fwojciec/skim"
	skimjson "github.com/fwojciec/skim/json"
)

var _ skim.Cache = (*Cache)(nil)

// Cache is a skim.Cache held in memory. The zero value is ready to use.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
	current skim.SessionID
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the cached session with the given id.
func (c *Cache) Get(id skim.SessionID) (skim.Session, bool) {
	c.mu.Lock()
	data, ok := c.entries[skim.Key(id)]
	c.mu.Unlock()
	if !ok {
		return skim.Session{}, false
	}
	s, err := skimjson.UnmarshalSession(data)
	if err != nil {
		return skim.Session{}, false
	}
	return s, true
}

// Put stores s under id.
func (c *Cache) Put(id skim.SessionID, s skim.Session) error {
	if id == nil || !skim.SameID(id, s.ID) {
		return fmt.Errorf("put %s: session id does not match key: %w", skim.Key(id), skim.ErrValidation)
	}
	data, err := skimjson.MarshalSession(s)
	if err != nil {
		return fmt.Errorf("put %s: %w", skim.Key(id), err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[skim.Key(id)] = data
	return nil
}

// Remove deletes the entry for id.
func (c *Cache) Remove(id skim.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, skim.Key(id))
	return nil
}

// List returns every decodable entry.
func (c *Cache) List() []skim.Session {
	c.mu.Lock()
	raw := make([][]byte, 0, len(c.entries))
	for _, data := range c.entries {
		raw = append(raw, data)
	}
	c.mu.Unlock()
	var out []skim.Session
	for _, data := range raw {
		if s, err := skimjson.UnmarshalSession(data); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Keys returns the storage keys of all entries, readable or not. It exists
// for tests that assert which key spaces a component wrote to.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Current returns the current-session pointer.
func (c *Cache) Current() (skim.SessionID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current != nil
}

// SetCurrent replaces the pointer. A nil id clears it.
func (c *Cache) SetCurrent(id skim.SessionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
	return nil
}
