package authz

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/middleware"
	"github.com/commune/commune-api/internal/pkg/response"
)

// CheckResponse is the body of GET /permissions/check
type CheckResponse struct {
	Allowed  bool   `json:"allowed"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Handler handles authorization check HTTP requests
type Handler struct {
	engine *Engine
}

// NewHandler creates authz handler
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Check handles GET /permissions/check
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resource := q.Get("resource")
	action := q.Get("action")
	if resource == "" || action == "" {
		response.BadRequest(w, "resource and action query parameters are required")
		return
	}

	var communityID *uuid.UUID
	if raw := q.Get("community_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid community ID")
			return
		}
		communityID = &id
	}

	userID := middleware.GetUserID(r.Context())
	allowed, err := h.engine.Authorize(r.Context(), userID, resource, action, communityID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, &CheckResponse{Allowed: allowed, Resource: resource, Action: action})
}
