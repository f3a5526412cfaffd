package skim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Controller tracks the single open session, or none for a fresh unsaved
// session. It owns the working copy that appends are made against and keeps
// the cache's current-session pointer in step with it.
type Controller struct {
	reconciler *Reconciler
	registry   *Registry
	cache      Cache
	logger     zerolog.Logger
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	current *Session
}

// NewController creates a Controller and subscribes it to reconciler events,
// so identity migration and deletion of the open session are reflected in
// its working copy.
func NewController(reconciler *Reconciler, registry *Registry, cache Cache, opts ...Option) *Controller {
	o := newOptions(opts)
	c := &Controller{
		reconciler: reconciler,
		registry:   registry,
		cache:      cache,
		logger:     o.logger.With().Str("component", "controller").Logger(),
		now:        o.now,
		newID:      o.newID,
	}
	reconciler.Subscribe(c.apply)
	return c
}

// Restore reopens the session named by the cache pointer. It reports whether
// a session was restored; a dangling pointer is cleared.
func (c *Controller) Restore() bool {
	id, ok := c.cache.Current()
	if !ok {
		return false
	}
	s, ok := c.lookup(id)
	if !ok {
		c.logger.Debug().Str("session", id.String()).Msg("current session pointer is dangling")
		c.setPointer(nil)
		return false
	}
	c.Open(s)
	return true
}

// Open makes s the current session. Messages come from s when present, else
// from the cache, else the session starts with none.
func (c *Controller) Open(s Session) {
	s = s.Clone()
	if len(s.Messages) == 0 && s.ID != nil {
		if cached, ok := c.cache.Get(s.ID); ok {
			s.Messages = cached.Messages
		}
	}
	c.mu.Lock()
	c.current = &s
	c.mu.Unlock()
	c.setPointer(s.ID)
}

// OpenID opens the session with the given id from the registry or the cache.
func (c *Controller) OpenID(id SessionID) error {
	s, ok := c.lookup(id)
	if !ok {
		return fmt.Errorf("open %v: %w", id, ErrNotFound)
	}
	c.Open(s)
	return nil
}

// StartNew clears the current session. The registry is not touched.
func (c *Controller) StartNew() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.setPointer(nil)
}

// CurrentID returns the id of the open session: its canonical id once one is
// known, else its provisional id.
func (c *Controller) CurrentID() (SessionID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.ID, true
}

// Current returns a copy of the open session's working copy.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Session{}, false
	}
	return c.current.Clone(), true
}

// Submit appends url to the open session. With no session open, a new
// provisional session is created and opened first. The submit runs to
// completion even if the user opens another session meanwhile.
func (c *Controller) Submit(ctx context.Context, url string) (Session, error) {
	if err := ValidateURL(url); err != nil {
		return Session{}, err
	}
	c.mu.Lock()
	if c.current == nil {
		s := NewSession(ProvisionalID(c.newID()), c.now())
		c.current = &s
	}
	working := c.current.Clone()
	c.mu.Unlock()
	c.setPointer(working.ID)

	return c.reconciler.Append(ctx, working, url)
}

// apply follows reconciler events for the open session.
func (c *Controller) apply(e Event) {
	var pointer SessionID
	var clear, move bool

	c.mu.Lock()
	switch e := e.(type) {
	case EventSessionUpdated:
		if c.current == nil {
			break
		}
		if SameID(c.current.ID, e.Session.ID) || SameID(c.current.ID, e.Previous) {
			s := e.Session.Clone()
			c.current = &s
			if e.Previous != nil {
				pointer, move = s.ID, true
			}
		}
	case EventSessionRenamed:
		if c.current != nil && SameID(c.current.ID, e.ID) {
			c.current.Title = e.Title
			c.current.Renamed = e.Renamed
		}
	case EventSessionRemoved:
		if c.current != nil && SameID(c.current.ID, e.ID) {
			c.current = nil
			clear = true
		}
	}
	c.mu.Unlock()

	switch {
	case move:
		c.setPointer(pointer)
	case clear:
		c.setPointer(nil)
	}
}

func (c *Controller) lookup(id SessionID) (Session, bool) {
	if s, ok := c.registry.Get(id); ok {
		return s, true
	}
	return c.cache.Get(id)
}

func (c *Controller) setPointer(id SessionID) {
	if err := c.cache.SetCurrent(id); err != nil {
		c.logger.Warn().Err(err).Msg("write current session pointer")
	}
}
