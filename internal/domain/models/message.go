// internal/domain/models/message.go
package models

import "time"

// Message is an immutable chat line persisted under a channel.
//
// CreatedAt is assigned by the server when the message is persisted and is
// authoritative. ClientTimestamp is whatever the sender reported.
// AttachmentRefs are opaque upload identifiers that this service never
// interprets.
type Message struct {
	ID              string     `bson:"_id" json:"id"`
	ChannelID       string     `bson:"channel_id" json:"channelId"`
	UserID          string     `bson:"user_id,omitempty" json:"userId,omitempty"`
	Body            string     `bson:"body" json:"body"`
	System          bool       `bson:"system,omitempty" json:"system,omitempty"`
	AttachmentRefs  []string   `bson:"attachment_refs,omitempty" json:"attachmentRefs,omitempty"`
	ClientTimestamp *time.Time `bson:"client_ts,omitempty" json:"clientTimestamp,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"timestamp"`
}
