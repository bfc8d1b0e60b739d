// internal/app/features/channels/messages.go
package channels

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/go-chi/chi/v5"
)

// ServeMessages handles GET /channels/{groupId}/{channelId}/messages.
//
// Query:
//   - before: RFC 3339 timestamp; only older messages are returned
//   - beforeId: message id breaking ties on before
//   - limit: page size, clamped by the fan-out service
//
// Messages come back oldest first. When hasMore is set, next holds the
// before/beforeId pair for the older page.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	const op = "channels.messages"

	cur, err := paging.ParseCursor(r)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	limit, err := paging.ParseLimit(r)
	if err != nil {
		httpjson.Error(w, err)
		return
	}

	ctx, cancel := readCtx(r)
	defer cancel()

	_, _, uid, _ := authz.UserCtx(r)
	ch, err := h.Engine.CanAccessChannel(ctx, chi.URLParam(r, "channelId"), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ch.GroupID != chi.URLParam(r, "groupId") {
		httpjson.Error(w, apperr.NotFound(op, "channel: not found"))
		return
	}

	page, err := h.History.Page(ctx, ch.ID, cur, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.OK(w, page)
}
