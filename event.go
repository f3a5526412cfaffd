package skim

// Op names a mutating user action.
type Op string

const (
	OpAppend Op = "append"
	OpRename Op = "rename"
	OpDelete Op = "delete"
)

// Event is a sealed interface describing a state change published by the
// Reconciler. Events are delivered synchronously, in order, on the goroutine
// that runs the operation.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventPending signals that a mutation of the session was admitted and is in
// flight. UIs disable the corresponding affordance until the matching
// success or EventFailed arrives.
type EventPending struct {
	ID SessionID
	Op Op
}

func (EventPending) event() {}

// EventSessionUpdated carries a new working copy of a session: the
// optimistic state, the reconciled state or the rolled-back state. Previous
// is set when the session's id changed (identity migration).
type EventSessionUpdated struct {
	Session  Session
	Previous SessionID
}

func (EventSessionUpdated) event() {}

// EventSessionRenamed carries an optimistic, confirmed or reverted title.
// Renamed mirrors Session.Renamed for the published title.
type EventSessionRenamed struct {
	ID      SessionID
	Title   string
	Renamed bool
	Pending bool
}

func (EventSessionRenamed) event() {}

// EventSessionRemoved signals a confirmed delete.
type EventSessionRemoved struct {
	ID SessionID
}

func (EventSessionRemoved) event() {}

// EventFailed signals a failed mutation that was rolled back. Err is meant
// to be surfaced to the user via ErrorMessage.
type EventFailed struct {
	ID  SessionID
	Op  Op
	Err error
}

func (EventFailed) event() {}

// Interface compliance checks.
var (
	_ Event = EventPending{}
	_ Event = EventSessionUpdated{}
	_ Event = EventSessionRenamed{}
	_ Event = EventSessionRemoved{}
	_ Event = EventFailed{}
)
