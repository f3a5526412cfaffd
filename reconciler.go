package skim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reconciler applies user mutations to sessions with a three-phase protocol:
// optimistic apply, a single gateway call, and reconciliation of the
// outcome. Mutations of the same session are serialized by admission
// control: a second mutation while one is in flight fails with ErrBusy.
// Mutations of different sessions proceed independently.
type Reconciler struct {
	gateway  Gateway
	registry *Registry
	cache    Cache
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	inflight map[string]Op
	handlers []func(Event)
}

// NewReconciler creates a Reconciler that writes reconciled state to
// registry and cache.
func NewReconciler(gateway Gateway, registry *Registry, cache Cache, opts ...Option) *Reconciler {
	o := newOptions(opts)
	return &Reconciler{
		gateway:  gateway,
		registry: registry,
		cache:    cache,
		logger:   o.logger.With().Str("component", "reconciler").Logger(),
		now:      o.now,
		newID:    o.newID,
		inflight: make(map[string]Op),
	}
}

// Subscribe registers fn to receive every event. Handlers run synchronously
// and must not call back into the Reconciler.
func (r *Reconciler) Subscribe(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, fn)
}

// Busy reports whether a mutation of the session is in flight.
func (r *Reconciler) Busy(id SessionID) bool {
	if id == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[Key(id)]
	return ok
}

// Append submits url to the session s, the caller's working copy, and
// returns the reconciled session. On failure the returned session carries
// exactly the messages s had, and the error is also published as EventFailed.
func (r *Reconciler) Append(ctx context.Context, s Session, url string) (Session, error) {
	url = strings.TrimSpace(url)
	if err := ValidateURL(url); err != nil {
		return s, err
	}
	if s.ID == nil {
		return s, fmt.Errorf("append: session has no id: %w", ErrValidation)
	}
	held, err := r.acquire(s.ID, OpAppend)
	if err != nil {
		return s, err
	}
	defer func() { r.release(held...) }()

	before := s.Clone()
	log := r.logger.With().Str("session", before.ID.String()).Str("op", string(OpAppend)).Logger()

	// Optimistic apply.
	optimistic := before.Clone()
	optimistic.Messages = append(optimistic.Messages, Message{
		ID:        r.messageID(before.Messages),
		Role:      RoleUser,
		Content:   url,
		Timestamp: r.stamp(before.Messages, time.Time{}),
	})
	optimistic.SyncState = SyncPending
	if optimistic.URL == "" {
		optimistic.URL = url
	}
	if optimistic.Title == "" {
		optimistic.Title = url
	}
	if !IsConfirmed(before.ID) {
		// Provisional sessions are visible in the history as pending and
		// cached so an interrupted submit can be resumed.
		r.registry.Upsert(optimistic)
		r.putCache(optimistic)
	}
	r.emit(EventPending{ID: before.ID, Op: OpAppend})
	r.emit(EventSessionUpdated{Session: optimistic.Clone()})

	// Submit.
	req := SummarizeRequest{URL: url, Messages: slices.Clone(before.Messages)}
	if id, ok := before.ID.(ConfirmedID); ok {
		req.SessionID = id
	}
	log.Debug().Int("prior_messages", len(req.Messages)).Msg("submitting")
	res, err := r.gateway.Summarize(ctx, req)
	if err == nil && !IsConfirmed(before.ID) && res.RemoteID == "" {
		err = &Error{Kind: ErrServer, Message: "The server did not return an id for the new summary."}
	}

	// Reconcile.
	if err != nil {
		log.Warn().Err(err).Msg("append failed, rolling back")
		return r.rollbackAppend(before, err), fmt.Errorf("append to %s: %w", before.ID, err)
	}

	final := optimistic.Clone()
	final.SyncState = SyncSynced
	final.UpdatedAt = r.now()
	if res.Title != "" && !final.Renamed {
		final.Title = res.Title
	}
	assistant := res.Message
	assistant.Role = RoleAssistant
	if assistant.ID == "" || HasMessage(final.Messages, assistant.ID) {
		assistant.ID = r.messageID(final.Messages)
	}
	assistant.Timestamp = r.stamp(final.Messages, assistant.Timestamp)
	final.Messages = append(final.Messages, assistant)

	switch id := before.ID.(type) {
	case ProvisionalID:
		final.ID = res.RemoteID
		held = append(held, r.hold(final.ID)...)
		// The cache is settled before the registry so that a history load
		// installing in between never finds the provisional entry.
		r.putCache(final)
		r.removeCache(id)
		r.registry.Migrate(id, final)
		log.Info().Str("remote_id", final.ID.String()).Msg("session confirmed")
		r.emit(EventSessionUpdated{Session: final.Clone(), Previous: id})
	case ConfirmedID:
		if res.RemoteID != "" && res.RemoteID != id {
			log.Warn().Str("remote_id", string(res.RemoteID)).Msg("server returned a different id, keeping canonical id")
		}
		r.registry.Upsert(final)
		r.putCache(final)
		log.Debug().Int("messages", len(final.Messages)).Msg("append confirmed")
		r.emit(EventSessionUpdated{Session: final.Clone()})
	}
	return final, nil
}

// rollbackAppend restores the pre-action state of a session after a failed
// create or append. A confirmed session is still consistent with the server;
// a provisional one is marked as failed but never discarded.
func (r *Reconciler) rollbackAppend(before Session, cause error) Session {
	rolled := before.Clone()
	if IsConfirmed(before.ID) {
		rolled.SyncState = SyncSynced
	} else {
		rolled.SyncState = SyncError
		r.registry.Upsert(rolled)
		r.putCache(rolled)
	}
	r.emit(EventSessionUpdated{Session: rolled.Clone()})
	r.emit(EventFailed{ID: before.ID, Op: OpAppend, Err: cause})
	return rolled
}

// Rename sets the title of a persisted session. The new title is published
// immediately; the registry and cache change only after the gateway
// confirms. On failure the last confirmed title is published again. A
// session unknown to both the registry and the cache fails with ErrNotFound
// before anything is published.
func (r *Reconciler) Rename(ctx context.Context, id SessionID, title string) error {
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return err
	}
	confirmed, ok := id.(ConfirmedID)
	if !ok {
		return fmt.Errorf("rename %v: %w: %w", id, errNotSaved, ErrValidation)
	}
	held, err := r.acquire(id, OpRename)
	if err != nil {
		return err
	}
	defer func() { r.release(held...) }()

	previous, known := r.registry.Get(id)
	if !known {
		previous, known = r.cache.Get(id)
	}
	if !known {
		return fmt.Errorf("rename %s: %w", id, ErrNotFound)
	}

	r.emit(EventPending{ID: id, Op: OpRename})
	r.emit(EventSessionRenamed{ID: id, Title: title, Renamed: true, Pending: true})

	if err := r.gateway.Rename(ctx, confirmed, title); err != nil {
		r.logger.Warn().Err(err).Str("session", id.String()).Msg("rename failed, reverting title")
		r.emit(EventSessionRenamed{ID: id, Title: previous.Title, Renamed: previous.Renamed})
		r.emit(EventFailed{ID: id, Op: OpRename, Err: err})
		return fmt.Errorf("rename %s: %w", id, err)
	}

	r.registry.Rename(id, title)
	if cached, ok := r.cache.Get(id); ok {
		cached.Title = title
		cached.Renamed = true
		r.putCache(cached)
	}
	r.emit(EventSessionRenamed{ID: id, Title: title, Renamed: true})
	return nil
}

// Delete removes a session. The registry entry is removed only after the
// gateway confirms; a session that is already gone remotely counts as
// deleted. Provisional sessions were never persisted and are removed locally.
func (r *Reconciler) Delete(ctx context.Context, id SessionID) error {
	if id == nil {
		return fmt.Errorf("delete: no session id: %w", ErrValidation)
	}
	held, err := r.acquire(id, OpDelete)
	if err != nil {
		return err
	}
	defer func() { r.release(held...) }()

	r.emit(EventPending{ID: id, Op: OpDelete})

	if confirmed, ok := id.(ConfirmedID); ok {
		err := r.gateway.Delete(ctx, confirmed)
		switch {
		case errors.Is(err, ErrNotFound):
			r.logger.Debug().Str("session", id.String()).Msg("session already deleted remotely")
		case err != nil:
			r.logger.Warn().Err(err).Str("session", id.String()).Msg("delete failed")
			r.emit(EventFailed{ID: id, Op: OpDelete, Err: err})
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}

	r.removeCache(id)
	r.registry.Remove(id)
	r.emit(EventSessionRemoved{ID: id})
	return nil
}

// acquire admits a mutation of id, returning the keys to release.
func (r *Reconciler) acquire(id SessionID, op Op) ([]string, error) {
	key := Key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if running, ok := r.inflight[key]; ok {
		return nil, fmt.Errorf("%s %s: %s in flight: %w", op, id, running, ErrBusy)
	}
	r.inflight[key] = op
	return []string{key}, nil
}

// hold extends an admitted mutation to the session's new id, so no other
// mutation can start under it before the current one finishes.
func (r *Reconciler) hold(id SessionID) []string {
	key := Key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[key]; ok {
		return nil
	}
	r.inflight[key] = OpAppend
	return []string{key}
}

func (r *Reconciler) release(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.inflight, k)
	}
}

func (r *Reconciler) emit(e Event) {
	r.mu.Lock()
	handlers := slices.Clone(r.handlers)
	r.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

// messageID returns a fresh id that does not collide with msgs.
func (r *Reconciler) messageID(msgs []Message) string {
	for {
		id := r.newID()
		if id != "" && !HasMessage(msgs, id) {
			return id
		}
	}
}

// stamp returns a timestamp strictly after the last message in msgs, so
// display order always equals sequence order. A zero t means now.
func (r *Reconciler) stamp(msgs []Message, t time.Time) time.Time {
	if t.IsZero() {
		t = r.now()
	}
	if last, ok := lastTimestamp(msgs); ok && !t.After(last) {
		t = last.Add(time.Nanosecond)
	}
	return t
}

func lastTimestamp(msgs []Message) (time.Time, bool) {
	if len(msgs) == 0 {
		return time.Time{}, false
	}
	return msgs[len(msgs)-1].Timestamp, true
}

func (r *Reconciler) putCache(s Session) {
	if err := r.cache.Put(s.ID, s); err != nil {
		r.logger.Warn().Err(err).Str("session", s.ID.String()).Msg("write cache")
	}
}

func (r *Reconciler) removeCache(id SessionID) {
	if err := r.cache.Remove(id); err != nil {
		r.logger.Warn().Err(err).Str("session", id.String()).Msg("remove cache entry")
	}
}
