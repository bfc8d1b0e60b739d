// internal/app/features/groups/managemembers.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// tierOp is one engine call on a (group, user) pair.
type tierOp func(ctx context.Context, groupID, userID string) error

// manage runs fn for {id}/{userId} when the caller manages the group.
func (h *Handler) manage(w http.ResponseWriter, r *http.Request, op string, fn tierOp) {
	g, ok := h.loadManaged(w, r, op)
	if !ok {
		return
	}
	h.apply(w, r, op, g.ID, chi.URLParam(r, "userId"), fn)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, op, groupID, userID string, fn tierOp) {
	ctx, cancel := mutationCtx(r)
	defer cancel()
	if err := fn(ctx, groupID, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	h.Log.Info("membership changed",
		zap.String("op", op),
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("actor_id", actor))
	h.writeGroup(w, r, http.StatusOK, groupID)
}

// HandleAddMember handles POST /groups/{id}/users/{userId}.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.addMember", h.Engine.AddMember)
}

// HandleRemoveUser handles DELETE /groups/{id}/users/{userId}. When the
// caller targets themself it is a voluntary leave with succession.
func (h *Handler) HandleRemoveUser(w http.ResponseWriter, r *http.Request) {
	if authz.IsSelf(r, chi.URLParam(r, "userId")) {
		h.HandleLeave(w, r)
		return
	}
	h.manage(w, r, "groups.removeUser", h.Engine.RemoveUserFromGroup)
}

// HandleLeave handles POST /groups/{id}/leave for the caller.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	_, _, uid, _ := authz.UserCtx(r)
	h.apply(w, r, "groups.leave", chi.URLParam(r, "id"), uid, h.Engine.LeaveGroupWithSuccession)
}

// HandlePromote handles POST /groups/{id}/users/{userId}/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.promote", h.Engine.PromoteToAdmin)
}

// HandleDemote handles POST /groups/{id}/users/{userId}/demote.
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.demote", h.Engine.DemoteAdmin)
}

// HandleApprove handles POST /groups/{id}/users/{userId}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.approve", h.Engine.ApproveInterest)
}

// HandleBan handles POST /groups/{id}/users/{userId}/ban.
func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.ban", h.Engine.BanUser)
}

// HandleUnban handles POST /groups/{id}/users/{userId}/unban.
func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "groups.unban", h.Engine.UnbanUser)
}

// HandleInterested handles POST /groups/{id}/users/{userId}/interested.
// Users register their own interest.
func (h *Handler) HandleInterested(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !authz.IsSelf(r, userID) {
		httpjson.Error(w, apperr.Forbidden("groups.interested", "you can only register your own interest"))
		return
	}
	h.apply(w, r, "groups.interested", chi.URLParam(r, "id"), userID, h.Engine.RegisterInterest)
}

// HandleDeny handles DELETE /groups/{id}/users/{userId}/deny. Managers deny
// a request; a user may also withdraw their own.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	const op = "groups.deny"
	userID := chi.URLParam(r, "userId")
	if authz.IsSelf(r, userID) {
		h.apply(w, r, op, chi.URLParam(r, "id"), userID, h.Engine.DenyInterest)
		return
	}
	h.manage(w, r, op, h.Engine.DenyInterest)
}
