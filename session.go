package skim

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// SessionID identifies a session. It is a sealed interface with exactly two
// implementations: ProvisionalID, generated by the client before the first
// successful persist, and ConfirmedID, assigned by the server. Once a
// ConfirmedID is known it is canonical.
type SessionID interface {
	isSessionID()
	String() string
}

// ProvisionalID is a client-generated session id.
type ProvisionalID string

func (ProvisionalID) isSessionID() {}

func (id ProvisionalID) String() string { return string(id) }

// ConfirmedID is a server-assigned, canonical session id.
type ConfirmedID string

func (ConfirmedID) isSessionID() {}

func (id ConfirmedID) String() string { return string(id) }

// Interface compliance checks.
var (
	_ SessionID = ProvisionalID("")
	_ SessionID = ConfirmedID("")
)

const (
	provisionalKeyPrefix = "local-"
	confirmedKeyPrefix   = "remote-"
)

// IsConfirmed reports whether id is a server-assigned id.
func IsConfirmed(id SessionID) bool {
	_, ok := id.(ConfirmedID)
	return ok
}

// Key returns the durable storage key for id. Provisional and confirmed ids
// live in disjoint key spaces.
func Key(id SessionID) string {
	switch v := id.(type) {
	case ProvisionalID:
		return provisionalKeyPrefix + string(v)
	case ConfirmedID:
		return confirmedKeyPrefix + string(v)
	default:
		return ""
	}
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (SessionID, error) {
	if rest, ok := strings.CutPrefix(key, provisionalKeyPrefix); ok && rest != "" {
		return ProvisionalID(rest), nil
	}
	if rest, ok := strings.CutPrefix(key, confirmedKeyPrefix); ok && rest != "" {
		return ConfirmedID(rest), nil
	}
	return nil, fmt.Errorf("malformed session key %q: %w", key, ErrValidation)
}

// SyncState describes how a session relates to the remote store.
type SyncState string

const (
	SyncLocalOnly SyncState = "local-only" // Created locally, never submitted.
	SyncPending   SyncState = "pending"    // A mutation is in flight.
	SyncSynced    SyncState = "synced"     // Matches the last confirmed server write.
	SyncError     SyncState = "error"      // The last mutation failed and was rolled back.
)

// Valid reports whether s is a known sync state.
func (s SyncState) Valid() bool {
	switch s {
	case SyncLocalOnly, SyncPending, SyncSynced, SyncError:
		return true
	}
	return false
}

// Session is one summarization conversation.
type Session struct {
	ID    SessionID
	Title string
	// URL is the article URL of the first user turn.
	URL string
	// Renamed is set once the user explicitly renames the session. Titles
	// suggested by the server no longer replace it afterwards.
	Renamed   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []Message
	SyncState SyncState
}

// NewSession returns a local-only session with the given provisional id.
func NewSession(id ProvisionalID, now time.Time) Session {
	return Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		SyncState: SyncLocalOnly,
	}
}

// Clone returns a copy of s that shares no message storage with s.
func (s Session) Clone() Session {
	s.Messages = slices.Clone(s.Messages)
	return s
}

// LastMessage returns the final message of the session, if any.
func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// SameID reports whether a and b identify the same session. Provisional and
// confirmed ids never compare equal.
func SameID(a, b SessionID) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b
}
