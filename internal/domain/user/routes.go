package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns user administration routes mounted at /users. The
// grant subrouter comes in from the caller; it nests at
// /{id}/permissions.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler, grants chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(adminMiddleware)

	r.Get("/{id}", h.Get)
	r.Put("/{id}/role", h.UpdateRole)
	r.Put("/{id}/ban", h.SetBanned)

	r.Mount("/{id}/permissions", grants)

	return r
}
