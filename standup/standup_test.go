package standup

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"huddle/domain"
	"huddle/engine"
	"huddle/errors"
	"huddle/ledger"
	"huddle/runtime"
)

const (
	alice    = domain.UserID(1)
	bob      = domain.UserID(2)
	outsider = domain.UserID(3)
	room     = domain.ChannelID(5)
)

// fakeDirectory guards its maps with a mutex so tests may mutate
// membership while the flush goroutine is live.
type fakeDirectory struct {
	mu      sync.Mutex
	members map[domain.ChannelID]domain.UserSet
	handles map[domain.UserID]string
}

func (f *fakeDirectory) ValidateSession(string) (domain.UserID, error) { return 0, nil }

func (f *fakeDirectory) ChannelExists(ch domain.ChannelID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[ch]
	return ok
}

func (f *fakeDirectory) ChannelMembers(ch domain.ChannelID) domain.UserSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(domain.UserSet, len(f.members[ch]))
	for u := range f.members[ch] {
		out[u] = struct{}{}
	}
	return out
}

func (f *fakeDirectory) ChannelOwners(domain.ChannelID) domain.UserSet { return nil }
func (f *fakeDirectory) IsGlobalOwner(domain.UserID) bool              { return false }

func (f *fakeDirectory) HandleOf(u domain.UserID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[u]
}

func (f *fakeDirectory) removeMember(ch domain.ChannelID, u domain.UserID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[ch], u)
}

func newFixture(t *testing.T) (*Manager, *engine.Engine, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{
		members: map[domain.ChannelID]domain.UserSet{room: {alice: {}, bob: {}}},
		handles: map[domain.UserID]string{alice: "alicesmith", bob: "bobjones"},
	}
	store := ledger.New()
	e := engine.New(dir, store, slog.Default(), 256)
	timers := runtime.NewTimerHeap(slog.Default())
	m := NewManager(dir, e, timers, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = timers.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, e, dir
}

func TestManager_StartAndIsActive(t *testing.T) {
	req := require.New(t)
	m, _, _ := newFixture(t)

	active, _, err := m.IsActive(room)
	req.NoError(err)
	req.False(active)

	finish, err := m.Start(alice, room, 500*time.Millisecond)
	req.NoError(err)
	req.GreaterOrEqual(finish, time.Now().Unix())

	active, reported, err := m.IsActive(room)
	req.NoError(err)
	req.True(active)
	req.Equal(finish, reported)

	// A second start while active is an input error.
	_, err = m.Start(bob, room, time.Second)
	req.True(errors.IsInvalid(err))

	_, err = m.Start(alice, domain.ChannelID(99), time.Second)
	req.True(errors.IsInvalid(err))

	_, _, err = m.IsActive(domain.ChannelID(99))
	req.True(errors.IsInvalid(err))
}

func TestManager_FlushPacksBufferIntoOneMessage(t *testing.T) {
	req := require.New(t)
	m, e, _ := newFixture(t)

	_, err := m.Start(alice, room, 300*time.Millisecond)
	req.NoError(err)

	req.NoError(m.Send(alice, room, "shipped the thing"))
	req.NoError(m.Send(bob, room, "reviewing the thing"))

	// Nothing is posted while the standup is buffering.
	window, _, err := e.Messages(alice, room, 0)
	req.NoError(err)
	req.Empty(window)

	req.Eventually(func() bool {
		window, _, err := e.Messages(alice, room, 0)
		return err == nil && len(window) == 1
	}, 3*time.Second, 20*time.Millisecond)

	window, _, err = e.Messages(alice, room, 0)
	req.NoError(err)
	req.Equal("alicesmith: shipped the thing\nbobjones: reviewing the thing", window[0].Body)
	// Attributed to the user who started the standup.
	req.Equal(alice, window[0].Sender)

	active, _, err := m.IsActive(room)
	req.NoError(err)
	req.False(active)
}

func TestManager_EmptyBufferFlushesNoMessage(t *testing.T) {
	req := require.New(t)
	m, e, _ := newFixture(t)

	_, err := m.Start(alice, room, 150*time.Millisecond)
	req.NoError(err)

	req.Eventually(func() bool {
		active, _, err := m.IsActive(room)
		return err == nil && !active
	}, 3*time.Second, 20*time.Millisecond)

	window, _, err := e.Messages(alice, room, 0)
	req.NoError(err)
	req.Empty(window)

	// The channel is Idle again: a fresh standup may start.
	_, err = m.Start(bob, room, 200*time.Millisecond)
	req.NoError(err)
}

func TestManager_FlushProceedsAfterStarterLeaves(t *testing.T) {
	req := require.New(t)
	m, e, dir := newFixture(t)

	_, err := m.Start(alice, room, 300*time.Millisecond)
	req.NoError(err)
	req.NoError(m.Send(alice, room, "last words"))

	// The starter leaves before the window closes; the flush owns its
	// captured data and still posts under the starter's identity.
	dir.removeMember(room, alice)

	req.Eventually(func() bool {
		window, _, err := e.Messages(bob, room, 0)
		return err == nil && len(window) == 1
	}, 3*time.Second, 20*time.Millisecond)

	window, _, err := e.Messages(bob, room, 0)
	req.NoError(err)
	req.Equal("alicesmith: last words", window[0].Body)
	req.Equal(alice, window[0].Sender)
}

func TestManager_Send_Validation(t *testing.T) {
	req := require.New(t)
	m, _, _ := newFixture(t)

	err := m.Send(alice, room, "no standup yet")
	req.True(errors.IsInvalid(err))

	_, err = m.Start(alice, room, 30*time.Second)
	req.NoError(err)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	err = m.Send(alice, room, string(long))
	req.True(errors.IsInvalid(err))

	err = m.Send(outsider, room, "not my room")
	req.True(errors.IsUnauthorized(err))

	err = m.Send(alice, domain.ChannelID(99), "nowhere")
	req.True(errors.IsInvalid(err))
}
