// internal/app/features/chat/session.go
package chat

import (
	"sync"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/gorilla/websocket"
)

// session is one websocket connection. Outbound events go through send,
// which only the writer goroutine drains.
type session struct {
	id       string
	userID   string
	username string
	conn     *websocket.Conn

	send chan realtime.Event
	done chan struct{}
	once sync.Once
}

func newSession(id, userID, username string, conn *websocket.Conn, queue int) *session {
	return &session{
		id:       id,
		userID:   userID,
		username: username,
		conn:     conn,
		send:     make(chan realtime.Event, queue),
		done:     make(chan struct{}),
	}
}

func (s *session) ID() string       { return s.id }
func (s *session) UserID() string   { return s.userID }
func (s *session) Username() string { return s.username }

// Deliver queues ev without blocking. A full queue or a stopped session
// drops the event.
func (s *session) Deliver(ev realtime.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// stop tells the writer to close the connection. Safe to call repeatedly.
func (s *session) stop() { s.once.Do(func() { close(s.done) }) }
