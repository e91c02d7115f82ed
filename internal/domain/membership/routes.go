package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns member management routes mounted at
// /communities/{id}/members
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/", h.List)

	r.Post("/{userID}/approve", h.Approve)
	r.Post("/{userID}/ban", h.Ban)
	r.Post("/{userID}/unban", h.Unban)
	r.Post("/{userID}/promote", h.Promote)
	r.Post("/{userID}/demote", h.Demote)

	return r
}
