// internal/app/features/chat/routes.go
package chat

import (
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the websocket endpoint.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeWS)

	return r
}
