// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/dalemusser/stratachat/internal/domain/models"
)

// UserCtx returns the caller's global role, username, user ID and a found
// flag. With no user in context it returns RoleUser, "", "", false so
// callers can trust ok=true means an authenticated caller.
func UserCtx(r *http.Request) (role models.RoleTier, username, userID string, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || u.ID == "" {
		return models.RoleUser, "", "", false
	}
	role = models.RoleTier(strings.ToLower(u.Role))
	if !role.Valid() {
		// Unknown role in session: fail closed.
		role = models.RoleUser
	}
	return role, u.Username, u.ID, true
}

// IsSuperAdmin reports whether the caller holds the superadmin role.
func IsSuperAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleSuperAdmin
}

// IsAdmin reports whether the caller is a global admin. Superadmins count.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role.AtLeast(models.RoleAdmin)
}

// IsSelf reports whether the caller is userID.
func IsSelf(r *http.Request, userID string) bool {
	_, _, id, ok := UserCtx(r)
	return ok && id == userID
}
