// internal/domain/models/group.go
package models

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Tier is the relation a user holds to one group.
type Tier string

const (
	TierNone       Tier = "none"
	TierInterested Tier = "interested"
	TierMember     Tier = "member"
	TierAdmin      Tier = "admin"
	TierBanned     Tier = "banned"
)

// Group is a collaborative space with its own membership tiers and channels.
//
// Admins, Members, Interested and Banned are pairwise disjoint: a user holds
// at most one tier per group.
type Group struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	NameCI      string `bson:"name_ci" json:"-"`
	Description string `bson:"description" json:"description"`

	Admins     []string `bson:"admins" json:"admins"`
	Members    []string `bson:"members" json:"members"`
	Interested []string `bson:"interested" json:"interested"`
	Banned     []string `bson:"banned" json:"banned"`
	ChannelIDs []string `bson:"channel_ids" json:"channel_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TierOf returns the tier userID currently holds in g.
func (g Group) TierOf(userID string) Tier {
	switch {
	case hasString(g.Admins, userID):
		return TierAdmin
	case hasString(g.Members, userID):
		return TierMember
	case hasString(g.Interested, userID):
		return TierInterested
	case hasString(g.Banned, userID):
		return TierBanned
	}
	return TierNone
}

// IsMember reports whether userID is a member or an admin of g.
func (g Group) IsMember(userID string) bool {
	t := g.TierOf(userID)
	return t == TierMember || t == TierAdmin
}

// SoleAdmin reports whether userID is the only admin of g.
func (g Group) SoleAdmin(userID string) bool {
	return len(g.Admins) == 1 && g.Admins[0] == userID
}

// HasChannel reports whether channelID is linked to g.
func (g Group) HasChannel(channelID string) bool { return hasString(g.ChannelIDs, channelID) }

// InvariantViolations lists every user that appears in more than one tier
// set. An empty result means the tier sets are pairwise disjoint.
func (g Group) InvariantViolations() []string {
	sets := []struct {
		name string
		ids  []string
	}{
		{"admins", g.Admins},
		{"members", g.Members},
		{"interested", g.Interested},
		{"banned", g.Banned},
	}
	var out []string
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			for _, id := range lo.Intersect(sets[i].ids, sets[j].ids) {
				out = append(out, fmt.Sprintf("%s in %s and %s", id, sets[i].name, sets[j].name))
			}
		}
	}
	return out
}

func hasString(set []string, v string) bool { return lo.Contains(set, v) }
