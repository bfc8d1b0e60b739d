// internal/app/features/channels/channellist.go
package channels

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/samber/lo"
)

// ServeList handles GET /channels/{groupId}. Members see the channels they
// may join; managers see every linked channel.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGroup(w, r, "channels.list", false)
	if !ok {
		return
	}
	ctx, cancel := readCtx(r)
	defer cancel()

	all, err := h.Engine.ListChannels(ctx, g.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !grouppolicy.CanManageGroup(r, g) {
		_, _, uid, _ := authz.UserCtx(r)
		all = lo.Filter(all, func(c models.Channel, _ int) bool { return c.Allows(uid) })
	}
	if all == nil {
		all = []models.Channel{}
	}
	httpjson.OK(w, map[string]any{"channels": all})
}
