package skim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the in-memory collection of sessions backing the history list,
// ordered most-recently-updated first. It holds at most one authoritative
// copy of each session, keyed by canonical id.
//
// Loads are sequenced: each Load takes a ticket and only the newest ticket
// may install its result. Writes made while a load is in flight are
// journaled and replayed over the load result, so a slow, stale history
// response never overwrites a newer local write.
type Registry struct {
	gateway Gateway
	cache   Cache
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions []Session
	degraded bool

	ticket  uint64
	loading int
	journal []registryWrite
}

type writeKind int

const (
	writeUpsert writeKind = iota
	writeMigrate
	writeRemove
	writeRename
)

type registryWrite struct {
	kind    writeKind
	ticket  uint64
	session Session   // upsert, migrate
	id      SessionID // remove, rename; source id for migrate
	title   string    // rename
}

// NewRegistry creates an empty Registry.
func NewRegistry(gateway Gateway, cache Cache, opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{
		gateway: gateway,
		cache:   cache,
		logger:  o.logger.With().Str("component", "registry").Logger(),
	}
}

// Load replaces the registry with a fresh history from the gateway and
// primes the cache. On ErrTransport it falls back to the cached sessions and
// marks the registry degraded; the error is not returned in that case.
// Other failures leave the registry unchanged and are returned.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	r.ticket++
	ticket := r.ticket
	r.loading++
	r.mu.Unlock()

	fetched, err := r.gateway.FetchHistory(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.finishLoad()

	if ticket != r.ticket {
		r.logger.Debug().Uint64("ticket", ticket).Uint64("latest", r.ticket).Msg("discarding superseded history response")
		return nil
	}
	switch {
	case err == nil:
		r.install(fetched, ticket, false)
		r.logger.Debug().Int("sessions", len(r.sessions)).Msg("history loaded")
		return nil
	case errors.Is(err, ErrTransport):
		r.install(r.cache.List(), ticket, true)
		r.logger.Warn().Err(err).Int("sessions", len(r.sessions)).Msg("history unavailable, serving cached sessions")
		return nil
	default:
		return fmt.Errorf("load history: %w", err)
	}
}

func (r *Registry) finishLoad() {
	r.loading--
	if r.loading == 0 {
		r.journal = nil
	}
}

// install replaces the registry contents with sessions and replays journaled
// writes made since the load with the given ticket began. Caller holds r.mu.
func (r *Registry) install(sessions []Session, ticket uint64, degraded bool) {
	var replay []registryWrite
	touched := make(map[SessionID]bool)
	for _, w := range r.journal {
		if w.ticket < ticket {
			continue
		}
		replay = append(replay, w)
		if w.session.ID != nil {
			touched[w.session.ID] = true
		}
		if w.id != nil {
			touched[w.id] = true
		}
	}

	seen := make(map[SessionID]bool, len(sessions))
	merged := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == nil {
			continue
		}
		if seen[s.ID] {
			r.logger.Warn().Str("session", s.ID.String()).Msg("duplicate session id in history, keeping the first")
			continue
		}
		seen[s.ID] = true
		s = s.Clone()
		if s.SyncState == "" {
			s.SyncState = SyncSynced
		}
		if !degraded && !touched[s.ID] {
			if len(s.Messages) == 0 {
				if cached, ok := r.cache.Get(s.ID); ok {
					s.Messages = cached.Messages
				}
			}
			if err := r.cache.Put(s.ID, s); err != nil {
				r.logger.Warn().Err(err).Str("session", s.ID.String()).Msg("prime cache")
			}
		}
		merged = append(merged, s)
	}

	if !degraded {
		// The server only knows confirmed sessions. Provisional ones stay
		// visible; confirmed ones it no longer returns are purged.
		for _, c := range r.cache.List() {
			if seen[c.ID] || touched[c.ID] {
				continue
			}
			if IsConfirmed(c.ID) {
				if err := r.cache.Remove(c.ID); err != nil {
					r.logger.Warn().Err(err).Str("session", c.ID.String()).Msg("purge cache")
				}
				continue
			}
			seen[c.ID] = true
			merged = append(merged, c)
		}
	}

	sortByRecency(merged)
	r.sessions = merged
	r.degraded = degraded
	for _, w := range replay {
		r.apply(w)
	}
}

func sortByRecency(sessions []Session) {
	slices.SortStableFunc(sessions, func(a, b Session) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

// Degraded reports whether the registry is serving cached sessions because
// the last load could not reach the server.
func (r *Registry) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Sessions returns a copy of the registry contents, most recent first.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Get returns the registry copy of the session with the given id.
func (r *Registry) Get(id SessionID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(id); i >= 0 {
		return r.sessions[i].Clone(), true
	}
	return Session{}, false
}

// Upsert inserts s, or replaces the entry with the same id, and moves it to
// the front.
func (r *Registry) Upsert(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := registryWrite{kind: writeUpsert, session: s.Clone()}
	r.record(w)
	r.apply(w)
}

// Migrate replaces the entry stored under from with s, which carries the
// session's canonical id. No entry under from remains afterwards.
func (r *Registry) Migrate(from SessionID, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := registryWrite{kind: writeMigrate, id: from, session: s.Clone()}
	r.record(w)
	r.apply(w)
}

// Remove deletes the entry with the given id. Callers confirm the remote
// delete first.
func (r *Registry) Remove(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := registryWrite{kind: writeRemove, id: id}
	r.record(w)
	r.apply(w)
}

// Rename updates the title of the entry in place. It reports whether the
// entry exists.
func (r *Registry) Rename(id SessionID, title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := registryWrite{kind: writeRename, id: id, title: title}
	r.record(w)
	return r.apply(w)
}

// record journals w while any load is in flight. Caller holds r.mu.
func (r *Registry) record(w registryWrite) {
	if r.loading == 0 {
		return
	}
	w.ticket = r.ticket
	r.journal = append(r.journal, w)
}

// apply performs w against r.sessions. Caller holds r.mu.
func (r *Registry) apply(w registryWrite) bool {
	switch w.kind {
	case writeUpsert:
		r.moveToFront(w.session)
		return true
	case writeMigrate:
		r.sessions = slices.DeleteFunc(r.sessions, func(s Session) bool { return SameID(s.ID, w.id) })
		r.moveToFront(w.session)
		return true
	case writeRemove:
		n := len(r.sessions)
		r.sessions = slices.DeleteFunc(r.sessions, func(s Session) bool { return SameID(s.ID, w.id) })
		return len(r.sessions) != n
	case writeRename:
		i := r.index(w.id)
		if i < 0 {
			return false
		}
		r.sessions[i].Title = w.title
		r.sessions[i].Renamed = true
		return true
	}
	return false
}

func (r *Registry) moveToFront(s Session) {
	r.sessions = slices.DeleteFunc(r.sessions, func(x Session) bool { return SameID(x.ID, s.ID) })
	r.sessions = slices.Insert(r.sessions, 0, s.Clone())
}

func (r *Registry) index(id SessionID) int {
	return slices.IndexFunc(r.sessions, func(s Session) bool { return SameID(s.ID, id) })
}
