package skim

// Cache is the durable local key/value store holding the last-known state of
// each session plus a pointer to the currently open session. It is a cache
// of convenience, not a source of truth. Implementations treat missing or
// corrupt entries as absent and never surface them as errors from reads.
type Cache interface {
	Get(id SessionID) (Session, bool)
	Put(id SessionID, s Session) error
	Remove(id SessionID) error
	// List returns every readable session entry in unspecified order.
	List() []Session
	// Current returns the pointer to the currently open session.
	Current() (SessionID, bool)
	// SetCurrent replaces the pointer. A nil id clears it.
	SetCurrent(id SessionID) error
}
