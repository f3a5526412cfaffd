package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/skim"
)

// FetchHistory retrieves the signed-in user's sessions.
func (c *Client) FetchHistory(ctx context.Context) ([]skim.Session, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, historyPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	sessions, positional, collisions := normalizeHistory(resp)
	if positional > 0 {
		c.logger.Warn().
			Int("items", positional).
			Int("collisions", collisions).
			Msg("history items without id, using positional ids")
	}
	return sessions, nil
}

// Summarize creates a session or appends to req.SessionID.
func (c *Client) Summarize(ctx context.Context, req skim.SummarizeRequest) (skim.SummarizeResult, error) {
	if err := skim.ValidateURL(req.URL); err != nil {
		return skim.SummarizeResult{}, fmt.Errorf("summarize: %w", err)
	}
	body := summarizeRequest{
		URL:      req.URL,
		ChatID:   string(req.SessionID),
		Messages: marshalMessages(req.Messages),
	}
	var resp summarizeResponse
	if err := c.do(ctx, http.MethodPost, summarizePath, body, &resp); err != nil {
		return skim.SummarizeResult{}, fmt.Errorf("summarize: %w", err)
	}
	res, err := normalizeSummarize(req, resp)
	if err != nil {
		return skim.SummarizeResult{}, fmt.Errorf("summarize: %w", err)
	}
	return res, nil
}

// Rename sets the title of the session with the given id.
func (c *Client) Rename(ctx context.Context, id skim.ConfirmedID, title string) error {
	body := renameRequest{Title: title}
	if err := c.do(ctx, http.MethodPut, summaryPath+url.PathEscape(string(id)), body, nil); err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	return nil
}

// Delete removes the session with the given id. A session that no longer
// exists counts as deleted.
func (c *Client) Delete(ctx context.Context, id skim.ConfirmedID) error {
	err := c.do(ctx, http.MethodDelete, summaryPath+url.PathEscape(string(id)), nil, nil)
	if err != nil && !errors.Is(err, skim.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// do performs one round-trip. A nil in skips the request body; a nil out
// discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var token string
	if c.token != nil {
		t, err := c.token()
		if err != nil {
			return &skim.Error{Kind: skim.ErrAuth, Err: err}
		}
		token = t
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &skim.Error{Kind: skim.ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &skim.Error{Kind: skim.ErrTransport, Status: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &skim.Error{Kind: skim.ErrServer, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorBody is the error payload; deployments use either field.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseHTTPError maps a non-2xx response to a *skim.Error, carrying the
// service's own message verbatim when it supplied one.
func parseHTTPError(resp *http.Response, path string) error {
	e := &skim.Error{Kind: statusKind(resp.StatusCode, path), Status: resp.StatusCode}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.Err = fmt.Errorf("read body: %w", err)
		return e
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
	}
	return e
}

func statusKind(status int, path string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return skim.ErrAuth
	case status == http.StatusNotFound:
		return skim.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return skim.ErrValidation
	case status >= 500 && path == summarizePath:
		return skim.ErrSummarization
	default:
		return skim.ErrServer
	}
}
