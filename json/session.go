// Package json persists sessions as JSON documents: a versioned envelope
// codec shared by the cache implementations, and a directory-backed cache.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/skim"
)

const (
	kindProvisional = "provisional"
	kindConfirmed   = "confirmed"
)

// envelope is the v1 wire format for a persisted session.
type envelope struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	IDKind    string       `json:"id_kind"`
	Title     string       `json:"title"`
	URL       string       `json:"url,omitempty"`
	Renamed   bool         `json:"renamed,omitempty"`
	SyncState string       `json:"sync_state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []messageDTO `json:"messages"`
}

// MarshalSession serializes a Session to JSON in v1 envelope format.
func MarshalSession(s skim.Session) ([]byte, error) {
	env := envelope{
		Version:   1,
		Title:     s.Title,
		URL:       s.URL,
		Renamed:   s.Renamed,
		SyncState: string(s.SyncState),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  make([]messageDTO, len(s.Messages)),
	}
	switch id := s.ID.(type) {
	case skim.ProvisionalID:
		env.ID, env.IDKind = string(id), kindProvisional
	case skim.ConfirmedID:
		env.ID, env.IDKind = string(id), kindConfirmed
	default:
		return nil, fmt.Errorf("session has no id: %w", skim.ErrValidation)
	}
	for i, msg := range s.Messages {
		env.Messages[i] = marshalMessage(msg)
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalSession deserializes a Session from JSON in v1 envelope format.
// The decoded session must satisfy skim.ValidateSession.
func UnmarshalSession(data []byte) (skim.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return skim.Session{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return skim.Session{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	if env.ID == "" {
		return skim.Session{}, errors.New("envelope has no id")
	}
	var id skim.SessionID
	switch env.IDKind {
	case kindProvisional:
		id = skim.ProvisionalID(env.ID)
	case kindConfirmed:
		id = skim.ConfirmedID(env.ID)
	default:
		return skim.Session{}, fmt.Errorf("unknown id kind: %q", env.IDKind)
	}
	msgs := make([]skim.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msgs[i] = unmarshalMessage(dto)
	}
	s := skim.Session{
		ID:        id,
		Title:     env.Title,
		URL:       env.URL,
		Renamed:   env.Renamed,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Messages:  msgs,
		SyncState: skim.SyncState(env.SyncState),
	}
	if err := skim.ValidateSession(s); err != nil {
		return skim.Session{}, fmt.Errorf("invalid session: %w", err)
	}
	return s, nil
}

// Save writes a Session to a JSON file, creating parent directories as needed.
func Save(path string, s skim.Session) error {
	data, err := MarshalSession(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, data)
}

// Load reads a Session from a JSON file.
func Load(path string) (skim.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return skim.Session{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalSession(data)
}

// writeFile replaces path atomically with data.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
