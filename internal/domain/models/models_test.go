package models

import "testing"

func TestRoleTier_Ladder(t *testing.T) {
	tests := []struct {
		role     RoleTier
		next     RoleTier
		nextOK   bool
		prev     RoleTier
		prevOK   bool
		atLeastA bool
	}{
		{RoleUser, RoleAdmin, true, "", false, false},
		{RoleAdmin, RoleSuperAdmin, true, RoleUser, true, true},
		{RoleSuperAdmin, "", false, RoleAdmin, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			next, ok := tt.role.Next()
			if ok != tt.nextOK || (ok && next != tt.next) {
				t.Errorf("Next() = %q, %v; want %q, %v", next, ok, tt.next, tt.nextOK)
			}
			prev, ok := tt.role.Prev()
			if ok != tt.prevOK || (ok && prev != tt.prev) {
				t.Errorf("Prev() = %q, %v; want %q, %v", prev, ok, tt.prev, tt.prevOK)
			}
			if got := tt.role.AtLeast(RoleAdmin); got != tt.atLeastA {
				t.Errorf("AtLeast(admin) = %v, want %v", got, tt.atLeastA)
			}
		})
	}
	if RoleTier("owner").Valid() {
		t.Error("unknown role should not be valid")
	}
}

func TestGroup_TierOf(t *testing.T) {
	g := Group{
		Admins:     []string{"a"},
		Members:    []string{"m"},
		Interested: []string{"i"},
		Banned:     []string{"b"},
	}
	cases := map[string]Tier{"a": TierAdmin, "m": TierMember, "i": TierInterested, "b": TierBanned, "x": TierNone}
	for id, want := range cases {
		if got := g.TierOf(id); got != want {
			t.Errorf("TierOf(%q) = %q, want %q", id, got, want)
		}
	}
	if !g.SoleAdmin("a") || g.SoleAdmin("m") {
		t.Error("SoleAdmin mismatch")
	}
	if len(g.InvariantViolations()) != 0 {
		t.Error("expected no violations")
	}
	g.Members = append(g.Members, "a")
	if v := g.InvariantViolations(); len(v) != 1 {
		t.Errorf("expected 1 violation, got %v", v)
	}
}

func TestChannel_Allows(t *testing.T) {
	open := Channel{}
	if open.Restricted() || !open.Allows("anyone") {
		t.Error("unrestricted channel should allow everyone")
	}
	closed := Channel{Members: []string{"u1"}}
	if !closed.Restricted() || closed.Allows("u2") || !closed.Allows("u1") {
		t.Error("restricted channel should only allow listed users")
	}
}
