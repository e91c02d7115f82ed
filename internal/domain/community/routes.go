package community

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns community routes. Membership and permission routes nest
// under /{id}; the caller registers them through the mount callback so
// this package stays free of those imports.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, mount func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
	})

	if mount != nil {
		mount(r)
	}

	return r
}
