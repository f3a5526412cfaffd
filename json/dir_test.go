package json_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/skim"
	skimjson "github.com/fwojciec/skim/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PutGetRemove(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := skimjson.NewDir(root)
	s := testSession()

	_, ok := d.Get(s.ID)
	assert.False(t, ok)

	require.NoError(t, d.Put(s.ID, s))
	got, ok := d.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	assert.FileExists(t, filepath.Join(root, "remote-42.json"))

	require.NoError(t, d.Remove(s.ID))
	_, ok = d.Get(s.ID)
	assert.False(t, ok)

	// Removing again is a no-op.
	require.NoError(t, d.Remove(s.ID))
}

func TestDir_KeySpacesAreDisjoint(t *testing.T) {
	t.Parallel()
	d := skimjson.NewDir(t.TempDir())
	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	local := skim.NewSession("42", now)

	require.NoError(t, d.Put(local.ID, local))

	_, ok := d.Get(skim.ConfirmedID("42"))
	assert.False(t, ok)
	got, ok := d.Get(skim.ProvisionalID("42"))
	require.True(t, ok)
	assert.Equal(t, skim.ProvisionalID("42"), got.ID)
}

func TestDir_PutRejectsMismatchedID(t *testing.T) {
	t.Parallel()
	d := skimjson.NewDir(t.TempDir())
	err := d.Put(skim.ConfirmedID("1"), testSession())
	assert.ErrorIs(t, err, skim.ErrValidation)
}

func TestDir_CorruptEntryIsAbsent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := skimjson.NewDir(root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "remote-7.json"), []byte("not json"), 0o600))

	_, ok := d.Get(skim.ConfirmedID("7"))
	assert.False(t, ok)
	assert.Empty(t, d.List())
}

func TestDir_List(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := skimjson.NewDir(root)
	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	require.NoError(t, d.Put(skim.ConfirmedID("42"), testSession()))
	local := skim.NewSession("draft", now)
	require.NoError(t, d.Put(local.ID, local))
	require.NoError(t, d.SetCurrent(local.ID))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "remote-9.json.tmp"), []byte("{}"), 0o600))

	got := d.List()
	ids := make([]skim.SessionID, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []skim.SessionID{skim.ConfirmedID("42"), skim.ProvisionalID("draft")}, ids)
}

func TestDir_ListMissingRoot(t *testing.T) {
	t.Parallel()
	d := skimjson.NewDir(filepath.Join(t.TempDir(), "missing"))
	assert.Empty(t, d.List())
}

func TestDir_Current(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := skimjson.NewDir(root)

	_, ok := d.Current()
	assert.False(t, ok)

	require.NoError(t, d.SetCurrent(skim.ProvisionalID("abc")))
	id, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, skim.ProvisionalID("abc"), id)

	require.NoError(t, d.SetCurrent(skim.ConfirmedID("42")))
	id, ok = d.Current()
	require.True(t, ok)
	assert.Equal(t, skim.ConfirmedID("42"), id)

	require.NoError(t, d.SetCurrent(nil))
	_, ok = d.Current()
	assert.False(t, ok)
	require.NoError(t, d.SetCurrent(nil))
}

func TestDir_CorruptPointerIsAbsent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := skimjson.NewDir(root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "current"), []byte("garbage"), 0o600))

	_, ok := d.Current()
	assert.False(t, ok)
}

func TestDir_IDsCannotEscapeRoot(t *testing.T) {
	t.Parallel()
	parent := t.TempDir()
	root := filepath.Join(parent, "cache")
	d := skimjson.NewDir(root)
	s := testSession()
	s.ID = skim.ConfirmedID("a/../../x")

	require.NoError(t, d.Put(s.ID, s))

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	require.Len(t, entries, 1, "nothing is written beside the cache dir")
	assert.Equal(t, "cache", entries[0].Name())
	assert.FileExists(t, filepath.Join(root, "remote-a%2F..%2F..%2Fx.json"))

	got, ok := d.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
	listed := d.List()
	require.Len(t, listed, 1)
	assert.Equal(t, s.ID, listed[0].ID)

	require.NoError(t, d.Remove(s.ID))
	assert.Empty(t, d.List())
}
