// internal/app/features/chat/handler.go

// Package chat is the websocket endpoint of the real-time layer.
//
// Each connection gets one session with a uuid id. The request goroutine
// reads frames; a single writer goroutine owns every write except control
// frames. Closing the connection for any reason leaves every room the
// session was in.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/realtime/rooms"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Access decides whether a user may join a channel.
type Access interface {
	CanAccessChannel(ctx context.Context, channelID, userID string) (models.Channel, error)
}

// Submitter is the fan-out path.
type Submitter interface {
	Submit(ctx context.Context, in fanout.SubmitInput) (models.Message, error)
}

// Rooms is the room registry.
type Rooms interface {
	Join(ctx context.Context, roomID string, s rooms.Session) bool
	Leave(ctx context.Context, roomID string, s rooms.Session) bool
	LeaveAll(ctx context.Context, s rooms.Session) []string
	InRoom(roomID, sessionID string) bool
}

// Config tunes the websocket connections.
type Config struct {
	SendQueue    int
	ReadLimit    int64
	PingInterval time.Duration
	WriteWait    time.Duration
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
}

func (c Config) withDefaults() Config {
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	return c
}

// Handler upgrades signed-in requests and runs their sessions.
type Handler struct {
	Access Access
	Fanout Submitter
	Rooms  Rooms
	Log    *zap.Logger

	cfg      Config
	upgrader websocket.Upgrader

	mu   sync.Mutex
	live map[string]*session
	wg   sync.WaitGroup
}

// NewHandler constructs a chat Handler.
func NewHandler(access Access, fan Submitter, rm Rooms, cfg Config, logger *zap.Logger) *Handler {
	cfg = cfg.withDefaults()
	return &Handler{
		Access: access,
		Fanout: fan,
		Rooms:  rm,
		Log:    logger,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		live: make(map[string]*session),
	}
}

// ServeWS handles GET /ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Error(w, apperr.Unauthorized("chat.connect", "sign in required"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		h.Log.Warn("websocket upgrade failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}

	s := newSession(uuid.NewString(), u.ID, u.Username, conn, h.cfg.SendQueue)
	h.track(s)
	defer h.untrack(s)

	h.Log.Info("websocket connected",
		zap.String("session_id", s.id),
		zap.String("user_id", s.userID))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(s)
	}()

	h.readLoop(s)

	s.stop()
	<-writerDone

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	left := h.Rooms.LeaveAll(ctx, s)
	cancel()

	h.Log.Info("websocket disconnected",
		zap.String("session_id", s.id),
		zap.String("user_id", s.userID),
		zap.Strings("left_rooms", left))
}

func (h *Handler) readLoop(s *session) {
	pongWait := 2 * h.cfg.PingInterval

	s.conn.SetReadLimit(h.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			h.logReadErr(s, err)
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage {
			continue
		}

		var f inbound
		if err := json.Unmarshal(data, &f); err != nil {
			h.Log.Warn("websocket frame parse failed",
				zap.String("session_id", s.id),
				zap.Int("len", len(data)),
				zap.Error(err))
			h.reject(s, "", apperr.Invalid("chat.frame", "malformed frame"))
			continue
		}
		if err := httpjson.Validate(&f); err != nil {
			h.reject(s, f.ChannelID, err)
			continue
		}
		h.dispatch(s, f)
	}
}

func (h *Handler) logReadErr(s *session, err error) {
	var ne net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		h.Log.Debug("websocket peer closed", zap.String("session_id", s.id))
	case errors.As(err, &ne) && ne.Timeout():
		h.Log.Info("websocket read timeout", zap.String("session_id", s.id))
	default:
		select {
		case <-s.done:
			// stopped by us
		default:
			h.Log.Info("websocket read error", zap.String("session_id", s.id), zap.Error(err))
		}
	}
}

func (h *Handler) dispatch(s *session, f inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	switch f.Type {
	case frameJoin:
		if _, err := h.Access.CanAccessChannel(ctx, f.ChannelID, s.userID); err != nil {
			h.reject(s, f.ChannelID, err)
			return
		}
		h.Rooms.Join(ctx, f.ChannelID, s)
		s.Deliver(realtime.Event{Type: realtime.EventJoined, ChannelID: f.ChannelID})

	case frameLeave:
		h.Rooms.Leave(ctx, f.ChannelID, s)
		s.Deliver(realtime.Event{Type: realtime.EventLeft, ChannelID: f.ChannelID})

	case frameSend:
		if !h.Rooms.InRoom(f.ChannelID, s.id) {
			h.reject(s, f.ChannelID, apperr.Forbidden("chat.send", "join the channel before sending"))
			return
		}
		// Membership may have changed since the join.
		if _, err := h.Access.CanAccessChannel(ctx, f.ChannelID, s.userID); err != nil {
			h.Rooms.Leave(ctx, f.ChannelID, s)
			h.reject(s, f.ChannelID, err)
			return
		}
		if _, err := h.Fanout.Submit(ctx, fanout.SubmitInput{
			ChannelID:       f.ChannelID,
			UserID:          s.userID,
			Body:            f.Body,
			AttachmentRefs:  f.AttachmentRefs,
			ClientTimestamp: f.Timestamp,
		}); err != nil {
			h.reject(s, f.ChannelID, err)
		}
	}
}

func (h *Handler) reject(s *session, channelID string, err error) {
	if apperr.KindOf(err) == apperr.KindPersistence {
		h.Log.Warn("websocket frame failed", zap.String("session_id", s.id), zap.Error(err))
	}
	s.Deliver(realtime.Event{
		Type:      realtime.EventError,
		ChannelID: channelID,
		Error: &realtime.ErrorPayload{
			Kind:    string(apperr.KindOf(err)),
			Message: apperr.Message(err),
		},
	})
}

func (h *Handler) writeLoop(s *session) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				h.Log.Debug("websocket write failed", zap.String("session_id", s.id), zap.Error(err))
				s.stop()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				s.stop()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (h *Handler) track(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wg.Add(1)
	h.live[s.id] = s
}

func (h *Handler) untrack(s *session) {
	h.mu.Lock()
	delete(h.live, s.id)
	h.mu.Unlock()
	h.wg.Done()
}

// Live reports the number of open sessions.
func (h *Handler) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// CloseAll stops every open session and waits for their cleanup, or for ctx
// to end.
func (h *Handler) CloseAll(ctx context.Context) error {
	h.mu.Lock()
	for _, s := range h.live {
		s.stop()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
