// internal/domain/models/roles.go
package models

// RoleTier is a user's global privilege level, independent of any group.
// The ladder is totally ordered: user < admin < superadmin.
type RoleTier string

const (
	RoleUser       RoleTier = "user"
	RoleAdmin      RoleTier = "admin"
	RoleSuperAdmin RoleTier = "superadmin"
)

// roleLadder lists the tiers from least to most privileged.
var roleLadder = []RoleTier{RoleUser, RoleAdmin, RoleSuperAdmin}

// Rank returns the position of r on the ladder, or -1 for an unknown tier.
func (r RoleTier) Rank() int {
	for i, t := range roleLadder {
		if t == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the known tiers.
func (r RoleTier) Valid() bool { return r.Rank() >= 0 }

// AtLeast reports whether r is at or above min on the ladder.
func (r RoleTier) AtLeast(min RoleTier) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// Next returns the tier a promotion moves to. ok is false for superadmin
// (terminal) and for unknown tiers.
func (r RoleTier) Next() (next RoleTier, ok bool) {
	i := r.Rank()
	if i < 0 || i == len(roleLadder)-1 {
		return r, false
	}
	return roleLadder[i+1], true
}

// Prev returns the tier a demotion moves to. ok is false for user
// (terminal) and for unknown tiers.
func (r RoleTier) Prev() (prev RoleTier, ok bool) {
	i := r.Rank()
	if i <= 0 {
		return r, false
	}
	return roleLadder[i-1], true
}
