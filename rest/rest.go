// Package rest implements [skim.Gateway] for the summarizer's HTTP API.
//
// The service has shipped several response shapes for the same endpoints.
// Every response is decoded into a permissive wire type and normalized to the
// skim data model by a single function per endpoint, each following a fixed
// field precedence.
package rest

import (
	"net/http"
	"strings"

	"github.com/fwojciec/skim"
	"github.com/rs/zerolog"
)

// Interface compliance check.
var _ skim.Gateway = (*Client)(nil)

const (
	historyPath   = "/history"
	summarizePath = "/summarize"
	summaryPath   = "/summary/"
)

// Config is the explicit configuration of a Client.
type Config struct {
	// BaseURL is the service root, e.g. "http://localhost:5000".
	BaseURL string
	// Token returns the bearer token attached to every request. An empty
	// token sends no Authorization header; an error fails the call with
	// skim.ErrAuth before any I/O. A nil Token sends no header.
	Token func() (string, error)
}

// Client implements [skim.Gateway] over HTTP.
type Client struct {
	baseURL    string
	token      func() (string, error)
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for request tracing. Tokens are never logged.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a [Client] for the service described by cfg.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}
