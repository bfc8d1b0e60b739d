// internal/app/features/users/roles.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type roleOp func(ctx context.Context, userID string) (models.User, error)

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, op string, fn roleOp) {
	if !grouppolicy.CanChangeRoles(r) {
		httpjson.Error(w, apperr.Forbidden(op, "superadmins only"))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Short())
	defer cancel()
	u, err := fn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.OK(w, u)
}

// HandlePromote handles POST /users/{id}/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "users.promote", h.Engine.PromoteUser)
}

// HandleDemote handles POST /users/{id}/demote.
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "users.demote", h.Engine.DemoteUser)
}
