// internal/domain/models/user.go
package models

import "time"

// User is an account known to the system.
//
// NOTE:
//   - GroupIDs holds groups where the user is a member or an admin. Group-level
//     admin status is tracked on the group document only.
//   - Root marks the single bootstrap superadmin used as the automatic
//     successor when a group loses its last admin.
type User struct {
	ID            string   `bson:"_id" json:"id"`
	Username      string   `bson:"username" json:"username"`
	UsernameCI    string   `bson:"username_ci" json:"-"`
	Email         string   `bson:"email" json:"email"`
	PasswordHash  string   `bson:"password_hash" json:"-"`
	Role          RoleTier `bson:"role" json:"role"`
	Root          bool     `bson:"root,omitempty" json:"root,omitempty"`
	GroupIDs      []string `bson:"group_ids" json:"group_ids"`
	InterestedIDs []string `bson:"interested_ids" json:"interested_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InGroup reports whether groupID is in the user's membership references.
func (u User) InGroup(groupID string) bool { return hasString(u.GroupIDs, groupID) }

// InterestedIn reports whether groupID is in the user's interest references.
func (u User) InterestedIn(groupID string) bool { return hasString(u.InterestedIDs, groupID) }
