package skim

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates malformed input, such as a non-URL. It is
	// reported before any network call and never retried.
	ErrValidation = errors.New("validation error")

	// ErrAuth indicates the remote service rejected the credentials. The
	// caller must force re-authentication.
	ErrAuth = errors.New("authentication required")

	// ErrTransport indicates the remote service could not be reached.
	ErrTransport = errors.New("transport error")

	// ErrServer indicates any other non-2xx response or an unusable body.
	ErrServer = errors.New("server error")

	// ErrSummarization indicates the remote summarizer could not process the URL.
	ErrSummarization = errors.New("summarization error")

	// ErrNotFound indicates the session no longer exists remotely.
	ErrNotFound = errors.New("session not found")

	// ErrBusy indicates a mutation of the same session is still in flight.
	ErrBusy = errors.New("session busy")
)

// Error is a failure reported by the remote service. It unwraps to both its
// Kind sentinel and the underlying cause.
type Error struct {
	Kind    error  // One of the sentinel errors above.
	Status  int    // HTTP status, 0 when no response was received.
	Message string // Message supplied by the service, if any.
	Err     error  // Underlying cause, if any.
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%v: HTTP %d: %s", e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%v: HTTP %d", e.Kind, e.Status)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorMessage returns the user-facing text for err. The service's own
// message is used verbatim when one was supplied.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return validationMessage(err)
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrTransport):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, ErrSummarization):
		return "Failed to generate summary. Please try again."
	case errors.Is(err, ErrNotFound):
		return "This summary no longer exists."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	default:
		return "Something went wrong. Please try again."
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, errEmptyURL):
		return "URL required. Please enter a valid article URL."
	case errors.Is(err, errInvalidURL):
		return "Invalid URL. Please enter a valid URL starting with http:// or https://"
	case errors.Is(err, errEmptyTitle):
		return "Title required."
	case errors.Is(err, errTitleTooLong):
		return fmt.Sprintf("Title must be at most %d characters.", MaxTitleLength)
	case errors.Is(err, errNotSaved):
		return "Wait until the summary is saved before renaming it."
	default:
		return "Invalid input."
	}
}
