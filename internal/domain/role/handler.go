package role

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/pkg/response"
	"github.com/commune/commune-api/internal/pkg/validator"
)

// Handler handles role registry HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates role handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /roles
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	role, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch err {
		case ErrAlreadyExists:
			response.Conflict(w, "Role with this name already exists")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, role)
}

// Get handles GET /roles/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Role not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, role)
}

// List handles GET /roles
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, roles)
}

// Update handles PUT /roles/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	role, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Role not found")
		case ErrAlreadyExists:
			response.Conflict(w, "Role with this name already exists")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, role)
}

// Delete handles DELETE /roles/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Role not found")
		case ErrSystemRole:
			response.Forbidden(w, "System roles cannot be deleted")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// SetPermissions handles POST /roles/{id}/permissions
func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	var req SetPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	role, err := h.service.SetPermissions(r.Context(), id, &req)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Role not found")
		case ErrPermissionNotFound:
			response.BadRequest(w, "One or more permission IDs do not exist")
		case ErrInvalidMode:
			response.BadRequest(w, "Action must be add, remove or set")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, role)
}

// Assign handles POST /roles/{id}/assignments
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	assignment, err := h.service.Assign(r.Context(), id, &req)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Role not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, assignment)
}

// Unassign handles DELETE /roles/{id}/assignments/{userID}
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid role ID")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.Unassign(r.Context(), id, userID); err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Assignment not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}
