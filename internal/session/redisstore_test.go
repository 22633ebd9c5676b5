package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	srv := miniredis.RunT(t)

	tracker, err := NewTracker(srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	return tracker
}

func TestTracker_CreateIsExclusive(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	state, err := tracker.Create(ctx, "call-1", []MemberID{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, []MemberID{"alice", "bob"}, state.Members)
	assert.Empty(t, state.Joined)

	_, err = tracker.Create(ctx, "call-1", []MemberID{"carol"})
	require.ErrorIs(t, err, ErrSessionExists)

	// The losing create must not clobber the roster.
	state, err = tracker.Snapshot(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, []MemberID{"alice", "bob"}, state.Members)
}

func TestTracker_SnapshotUnknownSession(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Snapshot(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTracker_JoinLeaveRoundTrip(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Create(ctx, "call-1", []MemberID{"alice", "bob"})
	require.NoError(t, err)

	state, err := tracker.Join(ctx, "call-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []MemberID{"alice"}, state.Joined)

	// Same typed rejections as the in-process machine.
	_, err = tracker.Join(ctx, "call-1", "alice")
	assert.Equal(t, KindMemberAlreadyInSession, KindOf(err))

	_, err = tracker.Join(ctx, "call-1", "mallory")
	assert.Equal(t, KindNotAllowedToJoin, KindOf(err))

	state, err = tracker.Leave(ctx, "call-1", "alice")
	require.NoError(t, err)
	assert.Empty(t, state.Joined)

	// Leaving twice is a no-op.
	state, err = tracker.Leave(ctx, "call-1", "alice")
	require.NoError(t, err)
	assert.Empty(t, state.Joined)

	state, err = tracker.Join(ctx, "call-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []MemberID{"alice"}, state.Joined)
}

func TestTracker_JoinUnknownSession(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Join(context.Background(), "ghost", "alice")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTracker_ConcurrentJoins(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	const n = 8

	roster := make([]MemberID, 0, n)
	for i := 0; i < n; i++ {
		roster = append(roster, MemberID(fmt.Sprintf("member-%d", i)))
	}

	_, err := tracker.Create(ctx, "call-1", roster)
	require.NoError(t, err)

	// Every process relays its own member's connect; the optimistic
	// transaction retries on contention, so no join may be lost.
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, m := range roster {
		wg.Add(1)
		go func(m MemberID) {
			defer wg.Done()
			_, err := tracker.Join(ctx, "call-1", m)
			errs <- err
		}(m)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	state, err := tracker.Snapshot(ctx, "call-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, roster, state.Joined)
}

func TestTracker_Delete(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Create(ctx, "call-1", []MemberID{"alice"})
	require.NoError(t, err)

	require.NoError(t, tracker.Delete(ctx, "call-1"))

	_, err = tracker.Snapshot(ctx, "call-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
