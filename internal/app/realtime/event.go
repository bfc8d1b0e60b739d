// internal/app/realtime/event.go

// Package realtime holds the event shapes shared by the room manager, the
// fan-out service, the cluster relay and the websocket endpoint.
package realtime

import "github.com/dalemusser/stratachat/internal/domain/models"

// EventType names a server-to-client frame.
type EventType string

const (
	// EventReceiveMessage carries a persisted message to a room.
	EventReceiveMessage EventType = "receiveMessage"
	// EventJoined acknowledges a joinChannel frame to its sender.
	EventJoined EventType = "joinedChannel"
	// EventLeft acknowledges a leaveChannel frame to its sender.
	EventLeft EventType = "leftChannel"
	// EventError reports a rejected client frame to its sender.
	EventError EventType = "error"
)

// Event is one server-to-client frame.
type Event struct {
	Type      EventType       `json:"type"`
	ChannelID string          `json:"channelId,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
}

// ErrorPayload mirrors the REST error body.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// MessageEvent wraps a persisted message as a receiveMessage frame.
func MessageEvent(m models.Message) Event {
	return Event{Type: EventReceiveMessage, ChannelID: m.ChannelID, Message: &m}
}
