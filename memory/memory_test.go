package memory_test

import (
	"testing"
	"time"

	"github.com/fwojciec/skim"
	"github.com/fwojciec/skim/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRemove(t *testing.T) {
	t.Parallel()
	c := memory.New()
	s := skim.Session{
		ID:        skim.ConfirmedID("42"),
		Title:     "A",
		SyncState: skim.SyncSynced,
		Messages:  []skim.Message{{ID: "m1", Role: skim.RoleUser, Content: "https://example.com/a"}},
	}

	require.NoError(t, c.Put(s.ID, s))
	got, ok := c.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	assert.Len(t, got.Messages, 1)

	// Returned copies share nothing with the stored entry.
	got.Messages[0].Content = "changed"
	again, _ := c.Get(s.ID)
	assert.Equal(t, "https://example.com/a", again.Messages[0].Content)

	require.NoError(t, c.Remove(s.ID))
	_, ok = c.Get(s.ID)
	assert.False(t, ok)
	assert.Empty(t, c.Keys())
}

func TestCache_PutRejectsMismatchedID(t *testing.T) {
	t.Parallel()
	c := memory.New()
	err := c.Put(skim.ProvisionalID("42"), skim.Session{ID: skim.ConfirmedID("42"), SyncState: skim.SyncSynced})
	assert.ErrorIs(t, err, skim.ErrValidation)
}

func TestCache_CorruptEntryIsAbsent(t *testing.T) {
	t.Parallel()
	c := memory.New()
	c.PutRaw(skim.ConfirmedID("1"), []byte("{"))

	_, ok := c.Get(skim.ConfirmedID("1"))
	assert.False(t, ok)
	assert.Empty(t, c.List())
	assert.Equal(t, []string{"remote-1"}, c.Keys())
}

func TestCache_List(t *testing.T) {
	t.Parallel()
	var c memory.Cache
	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put(skim.ProvisionalID("a"), skim.NewSession("a", now)))
	require.NoError(t, c.Put(skim.ConfirmedID("b"), skim.Session{ID: skim.ConfirmedID("b"), SyncState: skim.SyncSynced}))

	assert.Len(t, c.List(), 2)
}

func TestCache_Current(t *testing.T) {
	t.Parallel()
	c := memory.New()
	_, ok := c.Current()
	assert.False(t, ok)

	require.NoError(t, c.SetCurrent(skim.ConfirmedID("42")))
	id, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, skim.ConfirmedID("42"), id)

	require.NoError(t, c.SetCurrent(nil))
	_, ok = c.Current()
	assert.False(t, ok)
}
