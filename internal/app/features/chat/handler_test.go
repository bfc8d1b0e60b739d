package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/realtime/rooms"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/dalemusser/stratachat/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	t       *testing.T
	fx      *testutil.Fixtures
	rooms   *rooms.Manager
	fan     *fanout.Service
	handler *Handler
	server  *httptest.Server
	users   map[string]models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fx := testutil.NewFixtures(t)
	mgr := rooms.New(nil, zap.NewNop())
	fan := fanout.New(fx.Mem.Messages, mgr, zap.NewNop())
	mgr.SetAnnouncer(fan)
	h := NewHandler(fx.Engine, fan, mgr, Config{PingInterval: time.Second}, zap.NewNop())

	e := &env{t: t, fx: fx, rooms: mgr, fan: fan, handler: h, users: make(map[string]models.User)}

	// Stand-in for the session middleware: ?as=<username> signs the
	// request in.
	e.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := e.users[r.URL.Query().Get("as")]; ok {
			r = auth.WithTestUser(r, testutil.SessionUser(u))
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) user(name string) models.User {
	u := e.fx.CreateUser(name, models.RoleUser)
	e.users[name] = u
	return u
}

func (e *env) dial(name string) *websocket.Conn {
	e.t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/?as=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, frame map[string]any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(frame))
}

// next reads frames until one matches want or the deadline passes.
func next(t *testing.T, c *websocket.Conn, want func(realtime.Event) bool) realtime.Event {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev realtime.Event
		require.NoError(t, c.ReadJSON(&ev))
		if want(ev) {
			return ev
		}
	}
}

func isType(typ realtime.EventType) func(realtime.Event) bool {
	return func(ev realtime.Event) bool { return ev.Type == typ }
}

func isChat(ev realtime.Event) bool {
	return ev.Type == realtime.EventReceiveMessage && ev.Message != nil && !ev.Message.System
}

func (e *env) joined(c *websocket.Conn, channelID string) {
	e.t.Helper()
	send(e.t, c, map[string]any{"type": "joinChannel", "channelId": channelID})
	ev := next(e.t, c, func(ev realtime.Event) bool {
		return ev.Type == realtime.EventJoined || ev.Type == realtime.EventError
	})
	require.Equal(e.t, realtime.EventJoined, ev.Type, "join failed: %+v", ev.Error)
}

func TestWS_Two_Sessions_Receive_Hello(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.user("alice")
	bob := e.user("bob")
	g := e.fx.CreateGroup("team", alice)
	e.fx.AddMember(g, bob)
	ch := e.fx.CreateChannel(g, "general")

	a := e.dial("alice")
	b := e.dial("bob")
	e.joined(a, ch.ID)
	e.joined(b, ch.ID)

	before := time.Now().UTC().Add(-time.Millisecond)
	send(t, a, map[string]any{
		"type":      "sendMessage",
		"channelId": ch.ID,
		"userId":    bob.ID, // ignored
		"body":      "hello",
		"timestamp": before.Add(-time.Hour),
	})

	for _, c := range []*websocket.Conn{a, b} {
		ev := next(t, c, isChat)
		req.Equal("hello", ev.Message.Body)
		req.Equal(alice.ID, ev.Message.UserID)
		req.Equal(ch.ID, ev.Message.ChannelID)
		req.False(ev.Message.CreatedAt.Before(before))
	}

	history, err := e.fan.History(context.Background(), ch.ID, paging.Cursor{}, 0)
	req.NoError(err)
	var chats int
	for _, m := range history {
		if !m.System {
			chats++
		}
	}
	req.Equal(1, chats)
}

func TestWS_Join_Announces_To_Room(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.user("alice")
	bob := e.user("bob")
	g := e.fx.CreateGroup("team", alice)
	e.fx.AddMember(g, bob)
	ch := e.fx.CreateChannel(g, "general")

	a := e.dial("alice")
	e.joined(a, ch.ID)
	b := e.dial("bob")
	e.joined(b, ch.ID)

	ev := next(t, a, func(ev realtime.Event) bool {
		return ev.Message != nil && ev.Message.System && strings.HasPrefix(ev.Message.Body, "bob")
	})
	req.Equal("bob has joined the room", ev.Message.Body)

	require.NoError(t, b.Close())
	ev = next(t, a, func(ev realtime.Event) bool {
		return ev.Message != nil && ev.Message.Body == "bob has left the room"
	})
	req.True(ev.Message.System)
}

func TestWS_Send_Requires_Join(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.user("alice")
	g := e.fx.CreateGroup("team", alice)
	ch := e.fx.CreateChannel(g, "general")

	a := e.dial("alice")
	send(t, a, map[string]any{"type": "sendMessage", "channelId": ch.ID, "body": "too early"})

	ev := next(t, a, isType(realtime.EventError))
	req.Equal(string(apperr.KindForbidden), ev.Error.Kind)
	req.Equal(ch.ID, ev.ChannelID)
}

func TestWS_Join_Refused_For_Outsider(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.user("alice")
	e.user("mallory")
	g := e.fx.CreateGroup("team", alice)
	ch := e.fx.CreateChannel(g, "general")

	m := e.dial("mallory")
	send(t, m, map[string]any{"type": "joinChannel", "channelId": ch.ID})

	ev := next(t, m, isType(realtime.EventError))
	req.Equal(string(apperr.KindForbidden), ev.Error.Kind)
	req.Empty(e.rooms.Sessions(ch.ID))
}

func TestWS_Bad_Frames(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	e.user("alice")
	a := e.dial("alice")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{nope")))
	ev := next(t, a, isType(realtime.EventError))
	req.Equal(string(apperr.KindInvalid), ev.Error.Kind)

	send(t, a, map[string]any{"type": "dance", "channelId": "c1"})
	ev = next(t, a, isType(realtime.EventError))
	req.Equal(string(apperr.KindInvalid), ev.Error.Kind)
}

func TestWS_Disconnect_Leaves_Rooms(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	g := e.fx.CreateGroup("team", alice)
	ch := e.fx.CreateChannel(g, "general")

	a := e.dial("alice")
	e.joined(a, ch.ID)
	require.Len(t, e.rooms.Sessions(ch.ID), 1)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool {
		return len(e.rooms.Sessions(ch.ID)) == 0 && e.handler.Live() == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWS_Removed_Member_Cannot_Send(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	alice := e.user("alice")
	bob := e.user("bob")
	g := e.fx.CreateGroup("team", alice)
	e.fx.AddMember(g, bob)
	ch := e.fx.CreateChannel(g, "general")

	b := e.dial("bob")
	e.joined(b, ch.ID)
	req.NoError(e.fx.Engine.BanUser(context.Background(), g.ID, bob.ID))

	send(t, b, map[string]any{"type": "sendMessage", "channelId": ch.ID, "body": "still here?"})
	ev := next(t, b, isType(realtime.EventError))
	req.Equal(string(apperr.KindForbidden), ev.Error.Kind)
	req.Empty(e.rooms.Sessions(ch.ID))
}

func TestWS_Requires_Sign_In(t *testing.T) {
	e := newEnv(t)
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCloseAll_Stops_Sessions(t *testing.T) {
	e := newEnv(t)
	e.user("alice")
	a := e.dial("alice")
	require.Eventually(t, func() bool { return e.handler.Live() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, e.handler.CloseAll(ctx))
	require.Zero(t, e.handler.Live())

	_ = a.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
}
