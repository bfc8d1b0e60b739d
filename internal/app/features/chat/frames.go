// internal/app/features/chat/frames.go
package chat

import "time"

// Client frame types.
const (
	frameJoin  = "joinChannel"
	frameLeave = "leaveChannel"
	frameSend  = "sendMessage"
)

// inbound is a client-to-server frame. UserID is accepted for wire
// compatibility and ignored: the sender is always the session's user.
type inbound struct {
	Type           string     `json:"type" validate:"required,oneof=joinChannel leaveChannel sendMessage"`
	ChannelID      string     `json:"channelId" validate:"required,max=64"`
	UserID         string     `json:"userId,omitempty"`
	Body           string     `json:"body,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	AttachmentRefs []string   `json:"attachmentRefs,omitempty" validate:"max=16,dive,max=256"`
}
