// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/stratachat/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeUser)

		// ROLE LADDER
		pr.Post("/{id}/promote", h.HandlePromote)
		pr.Post("/{id}/demote", h.HandleDemote)
	})

	return r
}
