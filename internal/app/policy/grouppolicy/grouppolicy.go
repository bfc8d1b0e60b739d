// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/domain/models"
)

// CanManageGroup reports whether the caller may change g's membership,
// channels or details:
//   - global admins and superadmins always can
//   - otherwise only admins of g itself
func CanManageGroup(r *http.Request, g models.Group) bool {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if authz.IsAdmin(r) {
		return true
	}
	return g.TierOf(uid) == models.TierAdmin
}

// CanSeeMembers reports whether the caller may read g's member lists. Any
// signed-in user can see a group's name and channels so they can register
// interest; the tier sets are limited to members and managers.
func CanSeeMembers(r *http.Request, g models.Group) bool {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	return CanManageGroup(r, g) || g.IsMember(uid)
}

// CanDeleteGroup reports whether the caller may delete g. Same rule as
// management.
func CanDeleteGroup(r *http.Request, g models.Group) bool { return CanManageGroup(r, g) }

// CanChangeRoles reports whether the caller may move users along the global
// role ladder.
func CanChangeRoles(r *http.Request) bool { return authz.IsSuperAdmin(r) }
