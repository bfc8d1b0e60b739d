// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/policy/grouppolicy"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/authz"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"github.com/dalemusser/stratachat/internal/app/system/timeouts"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the /groups membership surface.
type Handler struct {
	Engine *membership.Engine
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler.
func NewHandler(engine *membership.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// readCtx bounds a read by the request and the medium timeout.
func readCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.Medium())
}

// mutationCtx detaches a membership mutation from client disconnects: once
// started it runs to completion or failure. The long timeout only guards
// against a hung store.
func mutationCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Long())
}

// loadManaged loads the {id} group and checks that the caller may manage
// it. It writes the failure response itself and reports ok=false.
func (h *Handler) loadManaged(w http.ResponseWriter, r *http.Request, op string) (models.Group, bool) {
	ctx, cancel := readCtx(r)
	defer cancel()

	g, err := h.Engine.GetGroup(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return models.Group{}, false
	}
	if !grouppolicy.CanManageGroup(r, g) {
		httpjson.Error(w, apperr.Forbidden(op, "you do not manage this group"))
		return models.Group{}, false
	}
	return g, true
}

// fail writes err and logs persistence failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindPersistence {
		_, _, uid, _ := authz.UserCtx(r)
		h.Log.Warn("group request failed",
			zap.String("path", r.URL.Path),
			zap.String("actor_id", uid),
			zap.Error(err))
	}
	httpjson.Error(w, err)
}

// writeGroup re-reads groupID and writes it as the caller may see it.
func (h *Handler) writeGroup(w http.ResponseWriter, r *http.Request, status int, groupID string) {
	ctx, cancel := readCtx(r)
	defer cancel()
	g, err := h.Engine.GetGroup(ctx, groupID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, status, viewOf(r, g))
}
