// internal/app/features/groups/groupnew.go
package groups

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
)

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	// FounderID defaults to the caller. Naming someone else requires a
	// global admin.
	FounderID string `json:"founderId" validate:"omitempty,max=64"`
}

// HandleCreate handles POST /groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "groups.create"
	var req createGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	founder := req.FounderID
	if founder == "" {
		founder = uid
	}
	if founder != uid && !authz.IsAdmin(r) {
		httpjson.Error(w, apperr.Forbidden(op, "only admins can found a group for someone else"))
		return
	}

	ctx, cancel := mutationCtx(r)
	defer cancel()
	g, err := h.Engine.CreateGroup(ctx, req.Name, req.Description, founder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeGroup(w, r, http.StatusCreated, g.ID)
}
