// internal/app/features/groups/groupedit.go
package groups

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
)

type updateGroupRequest struct {
	Name        string `json:"name" validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// HandleUpdate handles POST /groups/{id}/update. A blank name keeps the
// current one.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	g, ok := h.loadManaged(w, r, "groups.update")
	if !ok {
		return
	}

	ctx, cancel := mutationCtx(r)
	defer cancel()
	if _, err := h.Engine.UpdateGroup(ctx, g.ID, req.Name, req.Description); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeGroup(w, r, http.StatusOK, g.ID)
}
