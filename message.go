package skim

import (
	"slices"
	"time"
)

// Message is one turn in a session's conversation. For user turns Content is
// the submitted article URL; for assistant turns it is the summary text.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// HasMessage reports whether a message with the given id exists in msgs.
func HasMessage(msgs []Message, id string) bool {
	return slices.ContainsFunc(msgs, func(m Message) bool { return m.ID == id })
}
