package skim_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/skim"
	"github.com/fwojciec/skim/memory"
	"github.com/fwojciec/skim/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func confirmed(id, title string, updated time.Time) skim.Session {
	return skim.Session{
		ID:        skim.ConfirmedID(id),
		Title:     title,
		CreatedAt: updated,
		UpdatedAt: updated,
		SyncState: skim.SyncSynced,
	}
}

func historyGateway(sessions ...skim.Session) *mock.Gateway {
	return &mock.Gateway{
		FetchHistoryFn: func(ctx context.Context) ([]skim.Session, error) {
			return sessions, nil
		},
	}
}

func ids(sessions []skim.Session) []skim.SessionID {
	out := make([]skim.SessionID, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func TestRegistry_LoadOrdersByRecencyAndPrimesCache(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	gw := historyGateway(
		confirmed("1", "old", t0),
		confirmed("2", "new", t0.Add(time.Hour)),
		confirmed("1", "duplicate", t0.Add(2*time.Hour)),
	)
	reg := skim.NewRegistry(gw, cache)

	require.NoError(t, reg.Load(context.Background()))

	assert.Equal(t, []skim.SessionID{skim.ConfirmedID("2"), skim.ConfirmedID("1")}, ids(reg.Sessions()))
	assert.False(t, reg.Degraded())
	cached, ok := cache.Get(skim.ConfirmedID("1"))
	require.True(t, ok)
	assert.Equal(t, "old", cached.Title)
	assert.ElementsMatch(t, []string{"remote-1", "remote-2"}, cache.Keys())
}

func TestRegistry_LoadInheritsCachedMessages(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	withMessages := confirmed("1", "A", t0)
	withMessages.Messages = []skim.Message{
		{ID: "u", Role: skim.RoleUser, Content: "https://example.com/a", Timestamp: t0},
		{ID: "a", Role: skim.RoleAssistant, Content: "S1", Timestamp: t0.Add(time.Second)},
	}
	require.NoError(t, cache.Put(withMessages.ID, withMessages))
	reg := skim.NewRegistry(historyGateway(confirmed("1", "A (server)", t0)), cache)

	require.NoError(t, reg.Load(context.Background()))

	got, ok := reg.Get(skim.ConfirmedID("1"))
	require.True(t, ok)
	assert.Equal(t, "A (server)", got.Title)
	assert.Len(t, got.Messages, 2)
}

func TestRegistry_LoadTransportErrorFallsBackToCache(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	stale := confirmed("7", "Stale", t0)
	require.NoError(t, cache.Put(stale.ID, stale))
	gw := &mock.Gateway{
		FetchHistoryFn: func(ctx context.Context) ([]skim.Session, error) {
			return nil, &skim.Error{Kind: skim.ErrTransport, Err: errors.New("dial tcp: connection refused")}
		},
	}
	reg := skim.NewRegistry(gw, cache)

	require.NoError(t, reg.Load(context.Background()))

	sessions := reg.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Stale", sessions[0].Title)
	assert.True(t, reg.Degraded())
	// Degraded loads never purge the cache.
	assert.Equal(t, []string{"remote-7"}, cache.Keys())
}

func TestRegistry_LoadOtherErrorsLeaveRegistryUnchanged(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	fail := false
	gw := &mock.Gateway{
		FetchHistoryFn: func(ctx context.Context) ([]skim.Session, error) {
			if fail {
				return nil, &skim.Error{Kind: skim.ErrAuth, Status: 401}
			}
			return []skim.Session{confirmed("1", "A", t0)}, nil
		},
	}
	reg := skim.NewRegistry(gw, cache)
	require.NoError(t, reg.Load(context.Background()))

	fail = true
	err := reg.Load(context.Background())
	assert.ErrorIs(t, err, skim.ErrAuth)
	assert.Len(t, reg.Sessions(), 1)
}

func TestRegistry_LoadKeepsProvisionalAndPurgesVanished(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	draft := skim.NewSession("draft", t0.Add(time.Hour))
	draft.SyncState = skim.SyncError
	gone := confirmed("9", "Deleted elsewhere", t0)
	require.NoError(t, cache.Put(draft.ID, draft))
	require.NoError(t, cache.Put(gone.ID, gone))
	reg := skim.NewRegistry(historyGateway(confirmed("1", "A", t0)), cache)

	require.NoError(t, reg.Load(context.Background()))

	assert.Equal(t, []skim.SessionID{skim.ProvisionalID("draft"), skim.ConfirmedID("1")}, ids(reg.Sessions()))
	_, ok := cache.Get(gone.ID)
	assert.False(t, ok)
	_, ok = cache.Get(draft.ID)
	assert.True(t, ok)
}

func TestRegistry_UpsertDeduplicatesAndMovesToFront(t *testing.T) {
	t.Parallel()
	reg := skim.NewRegistry(historyGateway(confirmed("1", "A", t0.Add(time.Hour)), confirmed("2", "B", t0)), memory.New())
	require.NoError(t, reg.Load(context.Background()))

	reg.Upsert(confirmed("2", "B2", t0.Add(2*time.Hour)))

	sessions := reg.Sessions()
	assert.Equal(t, []skim.SessionID{skim.ConfirmedID("2"), skim.ConfirmedID("1")}, ids(sessions))
	assert.Equal(t, "B2", sessions[0].Title)
}

func TestRegistry_MigrateLeavesNoProvisionalEntry(t *testing.T) {
	t.Parallel()
	reg := skim.NewRegistry(historyGateway(), memory.New())
	draft := skim.NewSession("p", t0)
	reg.Upsert(draft)

	reg.Migrate(draft.ID, confirmed("42", "A", t0))

	assert.Equal(t, []skim.SessionID{skim.ConfirmedID("42")}, ids(reg.Sessions()))
	_, ok := reg.Get(draft.ID)
	assert.False(t, ok)
}

func TestRegistry_RenameAndRemove(t *testing.T) {
	t.Parallel()
	reg := skim.NewRegistry(historyGateway(confirmed("1", "A", t0)), memory.New())
	require.NoError(t, reg.Load(context.Background()))

	assert.True(t, reg.Rename(skim.ConfirmedID("1"), "Renamed"))
	assert.False(t, reg.Rename(skim.ConfirmedID("2"), "Nope"))
	got, _ := reg.Get(skim.ConfirmedID("1"))
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.Renamed)

	reg.Remove(skim.ConfirmedID("1"))
	reg.Remove(skim.ConfirmedID("1"))
	assert.Empty(t, reg.Sessions())
}

func TestRegistry_SessionsReturnsCopies(t *testing.T) {
	t.Parallel()
	s := confirmed("1", "A", t0)
	s.Messages = []skim.Message{{ID: "m", Role: skim.RoleUser, Content: "https://example.com"}}
	reg := skim.NewRegistry(historyGateway(), memory.New())
	reg.Upsert(s)

	got := reg.Sessions()
	got[0].Messages[0].Content = "mutated"

	again, _ := reg.Get(s.ID)
	assert.Equal(t, "https://example.com", again.Messages[0].Content)
}

// blockingGateway returns history responses only when released, so tests
// can interleave writes with an in-flight load.
type blockingGateway struct {
	mock.Gateway
	started chan struct{}
	release chan []skim.Session
}

func newBlockingGateway() *blockingGateway {
	g := &blockingGateway{
		started: make(chan struct{}, 4),
		release: make(chan []skim.Session),
	}
	g.FetchHistoryFn = func(ctx context.Context) ([]skim.Session, error) {
		g.started <- struct{}{}
		return <-g.release, nil
	}
	return g
}

func TestRegistry_UpsertDuringLoadSurvivesStaleResponse(t *testing.T) {
	t.Parallel()
	cache := memory.New()
	gw := newBlockingGateway()
	reg := skim.NewRegistry(gw, cache)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, reg.Load(context.Background()))
	}()
	<-gw.started

	fresh := confirmed("42", "Fresh", t0)
	fresh.Messages = []skim.Message{
		{ID: "u", Role: skim.RoleUser, Content: "https://example.com/a", Timestamp: t0},
		{ID: "a", Role: skim.RoleAssistant, Content: "S1", Timestamp: t0.Add(time.Second)},
	}
	reg.Upsert(fresh)
	require.NoError(t, cache.Put(fresh.ID, fresh))

	// The history snapshot predates the append.
	gw.release <- []skim.Session{confirmed("42", "Stale", t0.Add(-time.Hour)), confirmed("1", "Other", t0.Add(time.Hour))}
	wg.Wait()

	sessions := reg.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, skim.ConfirmedID("42"), sessions[0].ID)
	assert.Equal(t, "Fresh", sessions[0].Title)
	assert.Len(t, sessions[0].Messages, 2)
	cached, ok := cache.Get(fresh.ID)
	require.True(t, ok)
	assert.Equal(t, "Fresh", cached.Title, "stale load must not overwrite the cache")
}

func TestRegistry_RemoveDuringLoadIsNotUndone(t *testing.T) {
	t.Parallel()
	gw := newBlockingGateway()
	reg := skim.NewRegistry(gw, memory.New())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, reg.Load(context.Background()))
	}()
	<-gw.started
	reg.Remove(skim.ConfirmedID("1"))
	gw.release <- []skim.Session{confirmed("1", "Deleted", t0), confirmed("2", "Kept", t0)}
	wg.Wait()

	assert.Equal(t, []skim.SessionID{skim.ConfirmedID("2")}, ids(reg.Sessions()))
}

func TestRegistry_SupersededLoadIsDiscarded(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &mock.Gateway{
		FetchHistoryFn: func(ctx context.Context) ([]skim.Session, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(started)
				<-release
				return []skim.Session{confirmed("1", "Stale", t0)}, nil
			}
			return []skim.Session{confirmed("1", "Fresh", t0), confirmed("2", "New", t0)}, nil
		},
	}
	reg := skim.NewRegistry(gw, memory.New())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, reg.Load(context.Background()))
	}()
	<-started
	require.NoError(t, reg.Load(context.Background()))
	close(release)
	wg.Wait()

	sessions := reg.Sessions()
	require.Len(t, sessions, 2)
	got, _ := reg.Get(skim.ConfirmedID("1"))
	assert.Equal(t, "Fresh", got.Title)
}
