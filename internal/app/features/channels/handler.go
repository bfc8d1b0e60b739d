// internal/app/features/channels/handler.go
package channels

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/paging"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// History is the message read path.
type History interface {
	Page(ctx context.Context, channelID string, cur paging.Cursor, limit int) (fanout.Page, error)
}

// Handler serves /channels.
type Handler struct {
	Engine  *membership.Engine
	History History
	Log     *zap.Logger
}

func NewHandler(engine *membership.Engine, history History, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, History: history, Log: logger}
}

func readCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.Medium())
}

// mutationCtx keeps a started mutation running if the client goes away.
func mutationCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Long())
}

// loadGroup reads {groupId}. When manage is set the caller must manage the
// group; otherwise members are enough.
func (h *Handler) loadGroup(w http.ResponseWriter, r *http.Request, op string, manage bool) (models.Group, bool) {
	ctx, cancel := readCtx(r)
	defer cancel()

	g, err := h.Engine.GetGroup(ctx, chi.URLParam(r, "groupId"))
	if err != nil {
		h.fail(w, r, err)
		return models.Group{}, false
	}
	allowed := grouppolicy.CanManageGroup(r, g)
	if !manage {
		allowed = grouppolicy.CanSeeMembers(r, g)
	}
	if !allowed {
		httpjson.Error(w, apperr.Forbidden(op, "you are not a member of this group"))
		return models.Group{}, false
	}
	return g, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindPersistence {
		_, _, uid, _ := authz.UserCtx(r)
		h.Log.Warn("channel request failed",
			zap.String("path", r.URL.Path),
			zap.String("actor_id", uid),
			zap.Error(err))
	}
	httpjson.Error(w, err)
}
