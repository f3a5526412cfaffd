package skim

import "context"

// Gateway is a typed, stateless view of the remote summarization service.
// Implementations normalize every failure to the sentinel errors in this
// package.
type Gateway interface {
	// FetchHistory returns the signed-in user's sessions. Messages may be
	// omitted and loaded lazily.
	FetchHistory(ctx context.Context) ([]Session, error)

	// Summarize creates a session (req.SessionID empty) or appends to an
	// existing one, returning the canonical id and the assistant's reply.
	Summarize(ctx context.Context, req SummarizeRequest) (SummarizeResult, error)

	// Rename sets the title of a persisted session.
	Rename(ctx context.Context, id ConfirmedID, title string) error

	// Delete removes a persisted session. Deleting a session that no longer
	// exists is not an error.
	Delete(ctx context.Context, id ConfirmedID) error
}

// SummarizeRequest asks the service to summarize URL within a session.
type SummarizeRequest struct {
	SessionID ConfirmedID // Empty = create a new session.
	URL       string
	Messages  []Message // Prior messages of the session.
}

// SummarizeResult is the normalized reply to a SummarizeRequest.
type SummarizeResult struct {
	RemoteID ConfirmedID
	Title    string
	Message  Message // The new assistant message.
}
