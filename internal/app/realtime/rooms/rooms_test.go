package rooms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id, userID, name string

	mu     sync.Mutex
	events []realtime.Event
	full   bool
}

func newSession(name string) *fakeSession {
	return &fakeSession{id: uuid.NewString(), userID: uuid.NewString(), name: name}
}

func (s *fakeSession) ID() string       { return s.id }
func (s *fakeSession) UserID() string   { return s.userID }
func (s *fakeSession) Username() string { return s.name }

func (s *fakeSession) Deliver(ev realtime.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *fakeSession) received() []realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.Event(nil), s.events...)
}

type hook struct {
	kind, roomID, sessionID string
}

type fakePresence struct {
	mu    sync.Mutex
	hooks []hook
}

func (p *fakePresence) OnRoomJoined(roomID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook{"joined", roomID, sessionID})
}

func (p *fakePresence) OnRoomLeft(roomID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook{"left", roomID, sessionID})
}

type fakeAnnouncer struct {
	mu     sync.Mutex
	bodies map[string][]string
}

func (a *fakeAnnouncer) Announce(_ context.Context, roomID, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bodies == nil {
		a.bodies = make(map[string][]string)
	}
	a.bodies[roomID] = append(a.bodies[roomID], body)
	return nil
}

func TestManager_Join_One_Room_One_Session(t *testing.T) {
	req := require.New(t)
	presence := &fakePresence{}
	m := New(presence, nil)
	s := newSession("alice")

	// Given no room exists
	n, sessions := m.Stats()
	req.Zero(n)
	req.Zero(sessions)

	// When a session joins a room
	req.True(m.Join(context.Background(), "c1", s))

	// Then
	req.True(m.InRoom("c1", s.ID()))
	req.Len(m.Sessions("c1"), 1)
	req.Equal([]string{"c1"}, m.RoomsOf(s.ID()))
	req.Equal([]hook{{"joined", "c1", s.ID()}}, presence.hooks)
}

func TestManager_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	presence := &fakePresence{}
	ann := &fakeAnnouncer{}
	m := New(presence, nil)
	m.SetAnnouncer(ann)
	s := newSession("alice")

	req.True(m.Join(context.Background(), "c1", s))
	req.False(m.Join(context.Background(), "c1", s))

	req.Len(m.Sessions("c1"), 1)
	req.Len(presence.hooks, 1)
	req.Equal([]string{"alice has joined the room"}, ann.bodies["c1"])
}

func TestManager_Leave_Removes_Empty_Room(t *testing.T) {
	req := require.New(t)
	ann := &fakeAnnouncer{}
	m := New(nil, nil)
	m.SetAnnouncer(ann)
	s := newSession("bob")

	m.Join(context.Background(), "c1", s)
	req.True(m.Leave(context.Background(), "c1", s))

	// Leaving twice is a no-op
	req.False(m.Leave(context.Background(), "c1", s))

	req.False(m.InRoom("c1", s.ID()))
	req.Nil(m.Sessions("c1"))
	n, sessions := m.Stats()
	req.Zero(n)
	req.Zero(sessions)
	req.Equal([]string{"bob has joined the room", "bob has left the room"}, ann.bodies["c1"])
}

func TestManager_Leave_Unknown_Room(t *testing.T) {
	req := require.New(t)
	presence := &fakePresence{}
	m := New(presence, nil)

	req.False(m.Leave(context.Background(), "nowhere", newSession("carol")))
	req.Empty(presence.hooks)
}

func TestManager_LeaveAll_Drops_Every_Room(t *testing.T) {
	req := require.New(t)
	presence := &fakePresence{}
	m := New(presence, nil)
	a := newSession("alice")
	b := newSession("bob")

	m.Join(context.Background(), "c2", a)
	m.Join(context.Background(), "c1", a)
	m.Join(context.Background(), "c1", b)

	left := m.LeaveAll(context.Background(), a)

	req.Equal([]string{"c1", "c2"}, left)
	req.Empty(m.RoomsOf(a.ID()))
	req.Len(m.Sessions("c1"), 1)
	req.Nil(m.Sessions("c2"))
	req.Contains(presence.hooks, hook{"left", "c1", a.ID()})
	req.Contains(presence.hooks, hook{"left", "c2", a.ID()})

	// A second disconnect has nothing left to do
	req.Empty(m.LeaveAll(context.Background(), a))
}

func TestManager_Broadcast_Reaches_Room_Only(t *testing.T) {
	req := require.New(t)
	m := New(nil, nil)
	a := newSession("alice")
	b := newSession("bob")
	outsider := newSession("eve")

	m.Join(context.Background(), "c1", a)
	m.Join(context.Background(), "c1", b)
	m.Join(context.Background(), "c2", outsider)

	ev := realtime.MessageEvent(models.Message{ID: "m1", ChannelID: "c1", Body: "hello"})
	req.Equal(2, m.Broadcast("c1", ev))

	req.Equal([]realtime.Event{ev}, a.received())
	req.Equal([]realtime.Event{ev}, b.received())
	req.Empty(outsider.received())

	req.Zero(m.Broadcast("empty", ev))
}

func TestManager_Broadcast_Skips_Full_Session(t *testing.T) {
	req := require.New(t)
	m := New(nil, nil)
	fast := newSession("alice")
	slow := newSession("bob")
	slow.full = true

	m.Join(context.Background(), "c1", fast)
	m.Join(context.Background(), "c1", slow)

	req.Equal(1, m.Broadcast("c1", realtime.Event{Type: realtime.EventReceiveMessage}))
	req.Len(fast.received(), 1)
	req.Empty(slow.received())
}

func TestManager_Concurrent_Join_Leave(t *testing.T) {
	req := require.New(t)
	m := New(&fakePresence{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newSession("user")
			m.Join(context.Background(), "c1", s)
			m.Broadcast("c1", realtime.Event{Type: realtime.EventReceiveMessage})
			m.LeaveAll(context.Background(), s)
		}()
	}
	wg.Wait()

	n, sessions := m.Stats()
	req.Zero(n)
	req.Zero(sessions)
}

// stallSession holds its first delivery until release is closed.
type stallSession struct {
	*fakeSession
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallSession) Deliver(ev realtime.Event) bool {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.fakeSession.Deliver(ev)
}

func TestManager_Broadcast_Order_Survives_Room_Recreation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	m := New(nil, nil)

	slow := &stallSession{fakeSession: newSession("slow"), entered: make(chan struct{}), release: make(chan struct{})}
	m.Join(ctx, "c1", slow)

	first := make(chan struct{})
	go func() {
		defer close(first)
		m.Broadcast("c1", realtime.Event{Type: realtime.EventReceiveMessage, ChannelID: "one"})
	}()
	<-slow.entered

	// The room empties and is created again while the first broadcast is
	// still delivering.
	m.Leave(ctx, "c1", slow)
	bob := newSession("bob")
	m.Join(ctx, "c1", bob)

	second := make(chan struct{})
	go func() {
		defer close(second)
		m.Broadcast("c1", realtime.Event{Type: realtime.EventReceiveMessage, ChannelID: "two"})
	}()

	req.Never(func() bool {
		select {
		case <-second:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	close(slow.release)
	<-first
	<-second
	got := bob.received()
	req.Len(got, 1)
	req.Equal("two", got[0].ChannelID)
}

