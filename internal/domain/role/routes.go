package role

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns role registry routes. The whole registry is an
// administrative surface.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	// Mutations require the global admin role
	r.Group(func(r chi.Router) {
		r.Use(adminMiddleware)

		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		r.Post("/{id}/permissions", h.SetPermissions)
		r.Post("/{id}/assignments", h.Assign)
		r.Delete("/{id}/assignments/{userID}", h.Unassign)
	})

	return r
}
