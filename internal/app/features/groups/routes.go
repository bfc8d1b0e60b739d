// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// LIST / CREATE
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		// VIEW / EDIT / DELETE
		pr.Get("/{id}", h.ServeGroup)
		pr.Post("/{id}/update", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)

		// CHANNEL LINKS
		pr.Post("/{id}/channels", h.HandleLinkChannel)
		pr.Delete("/{id}/channels/{channelId}", h.HandleUnlinkChannel)

		// SELF
		pr.Post("/{id}/leave", h.HandleLeave)

		// MEMBERSHIP
		pr.Post("/{id}/users/{userId}", h.HandleAddMember)
		pr.Delete("/{id}/users/{userId}", h.HandleRemoveUser)
		pr.Post("/{id}/users/{userId}/promote", h.HandlePromote)
		pr.Post("/{id}/users/{userId}/demote", h.HandleDemote)
		pr.Post("/{id}/users/{userId}/interested", h.HandleInterested)
		pr.Post("/{id}/users/{userId}/approve", h.HandleApprove)
		pr.Delete("/{id}/users/{userId}/deny", h.HandleDeny)
		pr.Post("/{id}/users/{userId}/ban", h.HandleBan)
		pr.Post("/{id}/users/{userId}/unban", h.HandleUnban)
	})

	return r
}
