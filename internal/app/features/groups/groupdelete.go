// internal/app/features/groups/groupdelete.go
package groups

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
)

// HandleDelete handles DELETE /groups/{id}. Its channels are deleted
// logically and every user reference to the group is pulled.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "groups.delete"
	ctx, cancel := readCtx(r)
	g, err := h.Engine.GetGroup(ctx, chi.URLParam(r, "id"))
	cancel()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !grouppolicy.CanDeleteGroup(r, g) {
		httpjson.Error(w, apperr.Forbidden(op, "you do not manage this group"))
		return
	}

	mctx, mcancel := mutationCtx(r)
	defer mcancel()
	if err := h.Engine.DeleteGroup(mctx, g.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
