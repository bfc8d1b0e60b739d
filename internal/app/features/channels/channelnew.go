// internal/app/features/channels/channelnew.go
package channels

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"go.uber.org/zap"
)

type createChannelRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	// Members restricts the channel to a subset of the group. Omitted means
	// every group member.
	Members []string `json:"members" validate:"omitempty,max=1000,dive,required,max=64"`
}

// HandleCreate handles POST /channels/{groupId}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	g, ok := h.loadGroup(w, r, "channels.create", true)
	if !ok {
		return
	}

	in := membership.ChannelInput{Name: &req.Name, Description: &req.Description}
	if len(req.Members) > 0 {
		in.Members = &req.Members
	}
	ctx, cancel := mutationCtx(r)
	defer cancel()
	ch, err := h.Engine.CreateChannel(ctx, g.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info("channel created via api",
		zap.String("group_id", g.ID),
		zap.String("channel_id", ch.ID))
	httpjson.Write(w, http.StatusCreated, ch)
}
