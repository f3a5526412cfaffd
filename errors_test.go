package skim_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/skim"
	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsToKindAndCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := fmt.Errorf("load: %w", &skim.Error{Kind: skim.ErrTransport, Err: cause})

	assert.ErrorIs(t, err, skim.ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, skim.ErrServer)
	assert.Equal(t, "load: transport error: connection refused", err.Error())
}

func TestError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *skim.Error
		want string
	}{
		{&skim.Error{Kind: skim.ErrServer, Status: 500, Message: "db down"}, "server error: HTTP 500: db down"},
		{&skim.Error{Kind: skim.ErrSummarization, Message: "paywalled"}, "summarization error: paywalled"},
		{&skim.Error{Kind: skim.ErrNotFound, Status: 404}, "session not found: HTTP 404"},
		{&skim.Error{Kind: skim.ErrAuth}, "authentication required"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"service message verbatim", &skim.Error{Kind: skim.ErrSummarization, Message: "Could not fetch article"}, "Could not fetch article"},
		{"summarization fallback", &skim.Error{Kind: skim.ErrSummarization, Status: 500}, "Failed to generate summary. Please try again."},
		{"auth", fmt.Errorf("x: %w", skim.ErrAuth), "Your session has expired. Please sign in again."},
		{"transport", skim.ErrTransport, "Could not reach the server. Check your connection and try again."},
		{"not found", skim.ErrNotFound, "This summary no longer exists."},
		{"busy", skim.ErrBusy, "Please wait for the current request to finish."},
		{"generic", errors.New("boom"), "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, skim.ErrorMessage(tt.err))
		})
	}
}
