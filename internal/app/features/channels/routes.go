// internal/app/features/channels/routes.go
package channels

import (
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the channel surface under /channels.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// LIST / CREATE
		pr.Get("/{groupId}", h.ServeList)
		pr.Post("/{groupId}", h.HandleCreate)

		// VIEW / EDIT / DELETE
		pr.Get("/{groupId}/{channelId}", h.ServeChannel)
		pr.Post("/{groupId}/{channelId}", h.HandleUpdate)
		pr.Delete("/{groupId}/{channelId}", h.HandleDelete)

		// HISTORY
		pr.Get("/{groupId}/{channelId}/messages", h.ServeMessages)
	})

	return r
}
