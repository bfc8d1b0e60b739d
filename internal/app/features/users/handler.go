// internal/app/features/users/handler.go
package users

import (
	"net/http"

	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/store"
	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/stratachat/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler serves account creation, lookup and the global role ladder.
type Handler struct {
	Users  store.Users
	Engine *membership.Engine
	Log    *zap.Logger
}

func NewHandler(users store.Users, engine *membership.Engine, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Engine: engine, Log: logger}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindPersistence {
		h.Log.Warn("user request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	httpjson.Error(w, err)
}
