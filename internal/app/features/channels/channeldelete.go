// internal/app/features/channels/channeldelete.go
package channels

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /channels/{groupId}/{channelId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGroup(w, r, "channels.delete", true)
	if !ok {
		return
	}
	channelID := chi.URLParam(r, "channelId")

	ctx, cancel := mutationCtx(r)
	defer cancel()
	if err := h.Engine.DeleteChannel(ctx, g.ID, channelID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log.Info("channel deleted via api",
		zap.String("group_id", g.ID),
		zap.String("channel_id", channelID))
	w.WriteHeader(http.StatusNoContent)
}
