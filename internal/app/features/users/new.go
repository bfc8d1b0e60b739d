// internal/app/features/users/new.go
package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64,excludesall= /"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	// bcrypt ignores everything past 72 bytes.
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin superadmin"`
}

// HandleCreate handles POST /users. Admins create accounts; only a
// superadmin may create one above the user tier.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "users.create"
	if !authz.IsAdmin(r) {
		httpjson.Error(w, apperr.Forbidden(op, "admins only"))
		return
	}
	var req createUserRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	role := models.RoleUser
	if req.Role != "" {
		role = models.RoleTier(req.Role)
	}
	if role != models.RoleUser && !authz.IsSuperAdmin(r) {
		httpjson.Error(w, apperr.Forbidden(op, "only a superadmin can grant the %s role", role))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, r, apperr.Persistence(op, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	u, err := h.Users.Create(ctx, models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Role:         role,
	})
	if errors.Is(err, store.ErrDuplicate) {
		httpjson.Error(w, apperr.Conflict(op, "username %q is taken", req.Username))
		return
	}
	if err != nil {
		h.fail(w, r, apperr.Persistence(op, err))
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.Log.Info("user created",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("actor_id", actor))
	httpjson.Write(w, http.StatusCreated, u)
}
