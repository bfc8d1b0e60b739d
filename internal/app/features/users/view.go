// internal/app/features/users/view.go
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeUser handles GET /users/{id} for the user themself or an admin.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	const op = "users.get"
	id := chi.URLParam(r, "id")
	if !authz.IsSelf(r, id) && !authz.IsAdmin(r) {
		httpjson.Error(w, apperr.Forbidden(op, "you can only view your own account"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		httpjson.Error(w, apperr.NotFound(op, "user not found"))
		return
	}
	if err != nil {
		h.fail(w, r, apperr.Persistence(op, err))
		return
	}
	httpjson.OK(w, u)
}
