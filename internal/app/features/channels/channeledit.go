// internal/app/features/channels/channeledit.go
package channels

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
)

// ServeChannel handles GET /channels/{groupId}/{channelId}. The caller
// must be able to join the channel or manage its group.
func (h *Handler) ServeChannel(w http.ResponseWriter, r *http.Request) {
	const op = "channels.get"
	g, ok := h.loadGroup(w, r, op, false)
	if !ok {
		return
	}
	ctx, cancel := readCtx(r)
	defer cancel()

	ch, err := h.Engine.GetChannel(ctx, g.ID, chi.URLParam(r, "channelId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	if !grouppolicy.CanManageGroup(r, g) && !ch.Allows(uid) {
		httpjson.Error(w, apperr.Forbidden(op, "channel is restricted"))
		return
	}
	httpjson.OK(w, ch)
}

// updateChannelRequest leaves omitted fields unchanged. An empty members
// list lifts the restriction.
type updateChannelRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Members     *[]string `json:"members" validate:"omitempty,max=1000,dive,required,max=64"`
}

// HandleUpdate handles POST /channels/{groupId}/{channelId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateChannelRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	g, ok := h.loadGroup(w, r, "channels.update", true)
	if !ok {
		return
	}

	ctx, cancel := mutationCtx(r)
	defer cancel()
	ch, err := h.Engine.UpdateChannel(ctx, g.ID, chi.URLParam(r, "channelId"), membership.ChannelInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.OK(w, ch)
}
