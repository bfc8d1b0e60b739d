// internal/app/features/groups/managechannels.go
package groups

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
)

type linkChannelRequest struct {
	ChannelID string `json:"channelId" validate:"required,max=64"`
}

// HandleLinkChannel handles POST /groups/{id}/channels.
func (h *Handler) HandleLinkChannel(w http.ResponseWriter, r *http.Request) {
	var req linkChannelRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	g, ok := h.loadManaged(w, r, "groups.linkChannel")
	if !ok {
		return
	}
	h.apply(w, r, "groups.linkChannel", g.ID, req.ChannelID, h.Engine.LinkChannel)
}

// HandleUnlinkChannel handles DELETE /groups/{id}/channels/{channelId}.
func (h *Handler) HandleUnlinkChannel(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadManaged(w, r, "groups.unlinkChannel")
	if !ok {
		return
	}
	h.apply(w, r, "groups.unlinkChannel", g.ID, chi.URLParam(r, "channelId"), h.Engine.UnlinkChannel)
}
