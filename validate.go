package skim

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// MaxTitleLength is the maximum title length in user-perceived characters.
const MaxTitleLength = 100

var (
	errEmptyURL     = errors.New("url is empty")
	errInvalidURL   = errors.New("url must be absolute with http or https scheme")
	errEmptyTitle   = errors.New("title is empty")
	errTitleTooLong = errors.New("title too long")
	errNotSaved     = errors.New("session has not been saved yet")
)

// ValidateURL checks that raw is a syntactically valid absolute http or
// https URL. It is enforced before any network call.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: %w", errEmptyURL, ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidURL, ErrValidation)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %w", errInvalidURL, ErrValidation)
	}
	if u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("%w: %w", errInvalidURL, ErrValidation)
	}
	return nil
}

// ValidateTitle checks that title is non-blank and at most MaxTitleLength
// grapheme clusters long.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: %w", errEmptyTitle, ErrValidation)
	}
	if n := uniseg.GraphemeClusterCount(title); n > MaxTitleLength {
		return fmt.Errorf("%w (%d > %d): %w", errTitleTooLong, n, MaxTitleLength, ErrValidation)
	}
	return nil
}

// ValidateSession checks the structural invariants of a session: a non-nil
// id, a known sync state, known roles and message ids unique within the session.
func ValidateSession(s Session) error {
	if s.ID == nil {
		return fmt.Errorf("session has no id: %w", ErrValidation)
	}
	if !s.SyncState.Valid() {
		return fmt.Errorf("unknown sync state %q: %w", s.SyncState, ErrValidation)
	}
	seen := make(map[string]struct{}, len(s.Messages))
	for i, m := range s.Messages {
		if m.ID == "" {
			return fmt.Errorf("message %d has no id: %w", i, ErrValidation)
		}
		if !m.Role.Valid() {
			return fmt.Errorf("message %d has unknown role %q: %w", i, m.Role, ErrValidation)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate message id %q: %w", m.ID, ErrValidation)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// DefaultTitleWidth is the sidebar title width in terminal cells.
const DefaultTitleWidth = 40

// TruncateTitle shortens title to at most width terminal cells, marking the
// cut with "...".
func TruncateTitle(title string, width int) string {
	if width <= 0 {
		width = DefaultTitleWidth
	}
	return runewidth.Truncate(title, width, "...")
}
