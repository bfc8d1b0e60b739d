// internal/domain/models/channel.go
package models

import "time"

// Channel is a real-time conversation scope nested under exactly one group.
// GroupID never changes after creation.
//
// Members is an optional restricted subset of the group's members. A nil or
// empty slice means the channel inherits every group member.
type Channel struct {
	ID          string   `bson:"_id" json:"id"`
	GroupID     string   `bson:"group_id" json:"group_id"`
	Name        string   `bson:"name" json:"name"`
	Description string   `bson:"description" json:"description"`
	Members     []string `bson:"members,omitempty" json:"members,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"-"`
}

// Restricted reports whether the channel limits access to a member subset.
func (c Channel) Restricted() bool { return len(c.Members) > 0 }

// Allows reports whether userID passes the channel's restriction. It does
// not check group membership.
func (c Channel) Allows(userID string) bool {
	return !c.Restricted() || hasString(c.Members, userID)
}
