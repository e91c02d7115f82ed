package permission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the catalog routes mounted at /permissions. The check
// handler comes in from the decision engine package; registering it
// here keeps /permissions/check ahead of the /{id} pattern.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler, check http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Get("/check", check)
	r.Get("/{id}", h.Get)

	// Catalog mutations require the global admin role
	r.Group(func(r chi.Router) {
		r.Use(adminMiddleware)

		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/batch", h.Batch)
		r.Post("/defaults", h.SetupDefaults)
	})

	return r
}

// CommunityRoutes returns the community-scoped catalog routes mounted at
// /communities/{id}/permissions. Write access is guarded per request by
// the moderator gate rather than a global role.
func (h *Handler) CommunityRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/", h.ListCommunity)
	r.Post("/", h.CreateCommunity)

	return r
}

// UserRoutes returns the per-user grant routes mounted at
// /users/{id}/permissions
func (h *Handler) UserRoutes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(adminMiddleware)

	r.Post("/", h.AssignToUser)

	return r
}
