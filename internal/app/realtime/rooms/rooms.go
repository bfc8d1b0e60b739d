// internal/app/realtime/rooms/rooms.go

// Package rooms maps each channel to the set of live sessions viewing it.
//
// The registry is only mutated through Join, Leave and LeaveAll. Presence
// hooks and join/leave announcements run after the registry lock has been
// released.
package rooms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/stratachat/internal/app/realtime"
	"github.com/dalemusser/stratachat/internal/app/system/keyedlock"
	"go.uber.org/zap"
)

// Session is a live client connection.
type Session interface {
	ID() string
	UserID() string
	Username() string
	// Deliver queues ev for the client. It must not block; false means the
	// event was dropped.
	Deliver(ev realtime.Event) bool
}

// Presence receives room membership changes for the peer-signaling
// collaborator.
type Presence interface {
	OnRoomJoined(roomID, sessionID string)
	OnRoomLeft(roomID, sessionID string)
}

// Announcer posts a system message into a room.
type Announcer interface {
	Announce(ctx context.Context, roomID, body string) error
}

type set map[string]struct{}

type room struct {
	sessions map[string]Session
}

// Manager is the room registry.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*room
	bySession map[string]set // session id -> room ids
	// sendLocks orders broadcasts per room id. It is keyed by id, not held
	// on the room, so a room that empties and is recreated keeps one order.
	sendLocks *keyedlock.Map

	presence  Presence
	announcer Announcer
	logger    *zap.Logger
}

// New builds an empty Manager. A nil presence disables the hooks.
func New(presence Presence, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rooms:     make(map[string]*room),
		bySession: make(map[string]set),
		sendLocks: keyedlock.New(),
		presence:  presence,
		logger:    logger.Named("rooms"),
	}
}

// SetAnnouncer installs the join/leave announcer. It must be called before
// the first Join.
func (m *Manager) SetAnnouncer(a Announcer) { m.announcer = a }

// Join adds s to roomID. It reports false when s was already in the room,
// in which case nothing is emitted.
func (m *Manager) Join(ctx context.Context, roomID string, s Session) bool {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = &room{sessions: make(map[string]Session)}
		m.rooms[roomID] = r
	}
	if _, in := r.sessions[s.ID()]; in {
		m.mu.Unlock()
		return false
	}
	r.sessions[s.ID()] = s
	joined, ok := m.bySession[s.ID()]
	if !ok {
		joined = make(set)
		m.bySession[s.ID()] = joined
	}
	joined[roomID] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("session joined room",
		zap.String("room_id", roomID),
		zap.String("session_id", s.ID()),
		zap.String("user_id", s.UserID()))
	if m.presence != nil {
		m.presence.OnRoomJoined(roomID, s.ID())
	}
	m.announce(ctx, roomID, fmt.Sprintf("%s has joined the room", s.Username()))
	return true
}

// Leave removes s from roomID. Leaving a room s is not in is a no-op and
// reports false.
func (m *Manager) Leave(ctx context.Context, roomID string, s Session) bool {
	m.mu.Lock()
	left := m.removeLocked(roomID, s.ID())
	m.mu.Unlock()
	if !left {
		return false
	}
	m.left(ctx, roomID, s)
	return true
}

// LeaveAll removes s from every room it is in and returns those rooms in
// sorted order. Disconnects go through here.
func (m *Manager) LeaveAll(ctx context.Context, s Session) []string {
	m.mu.Lock()
	var roomIDs []string
	for roomID := range m.bySession[s.ID()] {
		roomIDs = append(roomIDs, roomID)
	}
	for _, roomID := range roomIDs {
		m.removeLocked(roomID, s.ID())
	}
	m.mu.Unlock()

	sort.Strings(roomIDs)
	for _, roomID := range roomIDs {
		m.left(ctx, roomID, s)
	}
	return roomIDs
}

// removeLocked drops the session from the room and both indexes, deleting
// anything left empty. m.mu must be held for writing.
func (m *Manager) removeLocked(roomID, sessionID string) bool {
	r, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	if _, in := r.sessions[sessionID]; !in {
		return false
	}
	delete(r.sessions, sessionID)
	if len(r.sessions) == 0 {
		delete(m.rooms, roomID)
	}
	if joined, ok := m.bySession[sessionID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(m.bySession, sessionID)
		}
	}
	return true
}

func (m *Manager) left(ctx context.Context, roomID string, s Session) {
	m.logger.Debug("session left room",
		zap.String("room_id", roomID),
		zap.String("session_id", s.ID()),
		zap.String("user_id", s.UserID()))
	if m.presence != nil {
		m.presence.OnRoomLeft(roomID, s.ID())
	}
	m.announce(ctx, roomID, fmt.Sprintf("%s has left the room", s.Username()))
}

func (m *Manager) announce(ctx context.Context, roomID, body string) {
	if m.announcer == nil {
		return
	}
	if err := m.announcer.Announce(ctx, roomID, body); err != nil {
		m.logger.Warn("room announcement failed",
			zap.String("room_id", roomID),
			zap.Error(err))
	}
}

// InRoom reports whether sessionID is currently in roomID.
func (m *Manager) InRoom(roomID, sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	_, in := r.sessions[sessionID]
	return in
}

// Sessions returns the sessions in roomID ordered by session id. Nil when
// the room is empty.
func (m *Manager) Sessions(roomID string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(roomID)
}

func (m *Manager) snapshotLocked(roomID string) []Session {
	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RoomsOf returns the rooms sessionID is in, sorted.
func (m *Manager) RoomsOf(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bySession[sessionID]))
	for roomID := range m.bySession[sessionID] {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// Stats reports the number of non-empty rooms and of sessions in any room.
func (m *Manager) Stats() (rooms, sessions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms), len(m.bySession)
}

// Broadcast delivers ev to every session in roomID and returns how many
// accepted it. Concurrent broadcasts into one room are delivered one after
// another, so every session sees them in the same order.
func (m *Manager) Broadcast(roomID string, ev realtime.Event) int {
	unlock := m.sendLocks.Lock(roomID)
	defer unlock()

	m.mu.RLock()
	targets := m.snapshotLocked(roomID)
	m.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	delivered := 0
	for _, s := range targets {
		if s.Deliver(ev) {
			delivered++
			continue
		}
		m.logger.Warn("dropped event for slow session",
			zap.String("room_id", roomID),
			zap.String("session_id", s.ID()),
			zap.String("type", string(ev.Type)))
	}
	return delivered
}
