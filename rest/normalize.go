package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/skim"
)

// noSummary is the assistant text when a response carries no summary field.
const noSummary = "No summary available."

const untitled = "Untitled"

// flexString decodes a JSON string or number. Numbers keep their decimal
// text. Null leaves the value empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// firstOf returns the first non-blank value.
func firstOf[T ~string](vals ...T) T {
	for _, v := range vals {
		if strings.TrimSpace(string(v)) != "" {
			return v
		}
	}
	return ""
}

type wireMessage struct {
	ID        flexString `json:"id,omitempty"`
	Role      string     `json:"role,omitempty"`
	Type      string     `json:"type,omitempty"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp,omitempty"`
}

type historyItem struct {
	ID                 flexString    `json:"id"`
	ChatID             flexString    `json:"chat_id"`
	SummaryID          flexString    `json:"summary_id"`
	Title              string        `json:"title"`
	URL                string        `json:"url"`
	Summary            string        `json:"summary"`
	AbstractiveSummary string        `json:"abstractive_summary"`
	ExtractiveSummary  string        `json:"extractive_summary"`
	Timestamp          string        `json:"timestamp"`
	CreatedAt          string        `json:"created_at"`
	UpdatedAt          string        `json:"updated_at"`
	Messages           []wireMessage `json:"messages"`
}

type historyResponse struct {
	Chats     []historyItem `json:"chats"`
	Summaries []historyItem `json:"summaries"`
}

type summarizeRequest struct {
	URL      string        `json:"url"`
	ChatID   string        `json:"chat_id,omitempty"`
	Messages []wireMessage `json:"messages,omitempty"`
}

type summarizeResponse struct {
	ChatID             flexString `json:"chat_id"`
	SummaryID          flexString `json:"summary_id"`
	ID                 flexString `json:"id"`
	Title              string     `json:"title"`
	Summary            string     `json:"summary"`
	AbstractiveSummary string     `json:"abstractive_summary"`
	ExtractiveSummary  string     `json:"extractive_summary"`
}

type renameRequest struct {
	Title string `json:"title"`
}

// summaryText picks the assistant text: summary, then abstractive_summary,
// then extractive_summary, then a fixed fallback.
func summaryText(summary, abstractive, extractive string) string {
	if s := firstOf(summary, abstractive, extractive); s != "" {
		return s
	}
	return noSummary
}

// normalizeHistory converts a history response to sessions. The chats shape
// takes precedence over the summaries shape. Items without an id get their
// positional index, suffixed when that would collide with another item's id.
// It returns the number of positional ids and how many of them were suffixed.
func normalizeHistory(resp historyResponse) (sessions []skim.Session, positional, collisions int) {
	items := resp.Chats
	if items == nil {
		items = resp.Summaries
	}
	taken := make(map[flexString]bool, len(items))
	for _, item := range items {
		if id := firstOf(item.ID, item.ChatID, item.SummaryID); id != "" {
			taken[id] = true
		}
	}
	sessions = make([]skim.Session, 0, len(items))
	for i, item := range items {
		id := firstOf(item.ID, item.ChatID, item.SummaryID)
		if id == "" {
			positional++
			id = flexString(strconv.Itoa(i))
			for n := 1; taken[id]; n++ {
				id = flexString(fmt.Sprintf("%d-%d", i, n))
				if n == 1 {
					collisions++
				}
			}
			taken[id] = true
		}
		sessions = append(sessions, normalizeItem(skim.ConfirmedID(id), item))
	}
	return sessions, positional, collisions
}

func normalizeItem(id skim.ConfirmedID, item historyItem) skim.Session {
	ts := parseTime(firstOf(item.Timestamp, item.CreatedAt, item.UpdatedAt))
	created := parseTime(firstOf(item.CreatedAt, item.Timestamp, item.UpdatedAt))
	s := skim.Session{
		ID:        id,
		Title:     firstOf(item.Title, item.URL, untitled),
		URL:       item.URL,
		CreatedAt: created,
		UpdatedAt: ts,
		SyncState: skim.SyncSynced,
	}
	if item.Messages != nil {
		s.Messages = unmarshalMessages(id, item.Messages)
		if s.URL == "" {
			for _, m := range s.Messages {
				if m.Role == skim.RoleUser {
					s.URL = m.Content
					break
				}
			}
		}
		return s
	}
	if item.URL != "" {
		s.Messages = []skim.Message{
			{ID: "user-" + string(id), Role: skim.RoleUser, Content: item.URL, Timestamp: ts},
			{ID: "assistant-" + string(id), Role: skim.RoleAssistant, Content: summaryText(item.Summary, item.AbstractiveSummary, item.ExtractiveSummary), Timestamp: ts.Add(time.Nanosecond)},
		}
	}
	return s
}

// unmarshalMessages converts wire messages, dropping those with an unknown
// role and replacing missing or duplicate ids so ids stay unique.
func unmarshalMessages(sessionID skim.ConfirmedID, wire []wireMessage) []skim.Message {
	msgs := make([]skim.Message, 0, len(wire))
	seen := make(map[string]bool, len(wire))
	for i, w := range wire {
		role := skim.Role(firstOf(w.Role, w.Type))
		if !role.Valid() {
			continue
		}
		id := string(w.ID)
		if id == "" || seen[id] {
			id = fmt.Sprintf("%s-%d", sessionID, i)
		}
		seen[id] = true
		msgs = append(msgs, skim.Message{
			ID:        id,
			Role:      role,
			Content:   w.Content,
			Timestamp: parseTime(w.Timestamp),
		})
	}
	return msgs
}

func marshalMessages(msgs []skim.Message) []wireMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{
			ID:        flexString(m.ID),
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return out
}

// normalizeSummarize converts a summarize response. The canonical id is
// chat_id, then summary_id, then id, then the id the request was made for.
func normalizeSummarize(req skim.SummarizeRequest, resp summarizeResponse) (skim.SummarizeResult, error) {
	id := firstOf(resp.ChatID, resp.SummaryID, resp.ID, flexString(req.SessionID))
	if id == "" {
		return skim.SummarizeResult{}, &skim.Error{Kind: skim.ErrServer, Err: errors.New("response for new session has no id")}
	}
	return skim.SummarizeResult{
		RemoteID: skim.ConfirmedID(id),
		Title:    firstOf(resp.Title, req.URL),
		Message: skim.Message{
			Role:    skim.RoleAssistant,
			Content: summaryText(resp.Summary, resp.AbstractiveSummary, resp.ExtractiveSummary),
		},
	}, nil
}

// timeLayouts are tried in order. Zone-less layouts are read as UTC; the
// service writes Python isoformat() timestamps without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z0700",
}

// parseTime returns the zero time for blank or unparseable input.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
