package json_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/skim"
	skimjson "github.com/fwojciec/skim/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() skim.Session {
	created := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	return skim.Session{
		ID:        skim.ConfirmedID("42"),
		Title:     "A",
		URL:       "https://example.com/a",
		Renamed:   true,
		CreatedAt: created,
		UpdatedAt: created.Add(5 * time.Minute),
		SyncState: skim.SyncSynced,
		Messages: []skim.Message{
			{ID: "m1", Role: skim.RoleUser, Content: "https://example.com/a", Timestamp: created},
			{ID: "m2", Role: skim.RoleAssistant, Content: "S1", Timestamp: created.Add(time.Second)},
		},
	}
}

func TestMarshalSession_RoundTrip(t *testing.T) {
	t.Parallel()
	session := testSession()

	data, err := skimjson.MarshalSession(session)
	require.NoError(t, err)

	got, err := skimjson.UnmarshalSession(data)
	require.NoError(t, err)

	assert.Equal(t, skim.ConfirmedID("42"), got.ID)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "https://example.com/a", got.URL)
	assert.True(t, got.Renamed)
	assert.Equal(t, skim.SyncSynced, got.SyncState)
	assert.True(t, session.CreatedAt.Equal(got.CreatedAt), "CreatedAt mismatch")
	assert.True(t, session.UpdatedAt.Equal(got.UpdatedAt), "UpdatedAt mismatch")
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m1", got.Messages[0].ID)
	assert.Equal(t, skim.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "S1", got.Messages[1].Content)
	assert.True(t, session.Messages[1].Timestamp.Equal(got.Messages[1].Timestamp))
}

func TestMarshalSession_ProvisionalID(t *testing.T) {
	t.Parallel()
	session := skim.NewSession("abc", time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC))

	data, err := skimjson.MarshalSession(session)
	require.NoError(t, err)

	got, err := skimjson.UnmarshalSession(data)
	require.NoError(t, err)
	assert.Equal(t, skim.ProvisionalID("abc"), got.ID)
	assert.Equal(t, skim.SyncLocalOnly, got.SyncState)
	assert.Empty(t, got.Messages)
}

func TestMarshalSession_V1Envelope(t *testing.T) {
	t.Parallel()
	data, err := skimjson.MarshalSession(testSession())
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &envelope))

	var version int
	require.NoError(t, json.Unmarshal(envelope["version"], &version))
	assert.Equal(t, 1, version)

	for _, field := range []string{"id", "id_kind", "title", "url", "renamed", "sync_state", "created_at", "updated_at", "messages"} {
		assert.Contains(t, envelope, field)
	}
	assert.JSONEq(t, `"confirmed"`, string(envelope["id_kind"]))
}

func TestMarshalSession_NoID(t *testing.T) {
	t.Parallel()
	_, err := skimjson.MarshalSession(skim.Session{Title: "x"})
	assert.ErrorIs(t, err, skim.ErrValidation)
}

func TestUnmarshalSession_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unsupported version", `{"version":2,"id":"1","id_kind":"confirmed","sync_state":"synced"}`},
		{"missing id", `{"version":1,"id_kind":"confirmed","sync_state":"synced"}`},
		{"unknown id kind", `{"version":1,"id":"1","id_kind":"remote","sync_state":"synced"}`},
		{"unknown sync state", `{"version":1,"id":"1","id_kind":"confirmed","sync_state":"lost"}`},
		{"unknown role", `{"version":1,"id":"1","id_kind":"confirmed","sync_state":"synced","messages":[{"id":"m","role":"system","content":"x"}]}`},
		{"duplicate message id", `{"version":1,"id":"1","id_kind":"confirmed","sync_state":"synced","messages":[{"id":"m","role":"user"},{"id":"m","role":"assistant"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := skimjson.UnmarshalSession([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSave_And_Load(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	session := testSession()

	require.NoError(t, skimjson.Save(path, session))

	got, err := skimjson.Load(path)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Len(t, got.Messages, 2)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestLoad_NonexistentFile(t *testing.T) {
	t.Parallel()
	_, err := skimjson.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
