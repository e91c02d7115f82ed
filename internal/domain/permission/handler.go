package permission

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/middleware"
	"github.com/commune/commune-api/internal/pkg/response"
	"github.com/commune/commune-api/internal/pkg/validator"
)

// ModeratorGate checks that the actor may moderate a community.
// Satisfied by the membership service.
type ModeratorGate interface {
	RequireModerator(ctx context.Context, actorID, communityID uuid.UUID) error
}

// Handler handles permission catalog HTTP requests
type Handler struct {
	service    *Service
	moderators ModeratorGate
}

// NewHandler creates permission handler
func NewHandler(service *Service, moderators ModeratorGate) *Handler {
	return &Handler{
		service:    service,
		moderators: moderators,
	}
}

// Create handles POST /permissions
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

	h.create(w, r, &req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req *CreateRequest) {
	perm, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch err {
		case ErrAlreadyExists:
			response.Conflict(w, "Permission with this name already exists in this scope")
		case ErrScopeRequiresCommunity:
			response.BadRequest(w, "Subreddit-scope permissions require a community ID")
		case ErrSiteScopeWithCommunity:
			response.BadRequest(w, "Site-scope permissions cannot carry a community ID")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, perm)
}

// Get handles GET /permissions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid permission ID")
		return
	}

	perm, err := h.service.Get(r.Context(), id)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Permission not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, perm)
}

// List handles GET /permissions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	perms, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, perms, response.NewMeta(total, filter.Page, filter.Limit))
}

// Update handles PUT /permissions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid permission ID")
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

	perm, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Permission not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, perm)
}

// Delete handles DELETE /permissions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid permission ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Permission not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// Batch handles POST /permissions/batch
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	affected, err := h.service.BatchOperation(r.Context(), &req)
	if err != nil {
		switch err {
		case ErrInvalidBatchOp:
			response.BadRequest(w, "Unknown batch operation")
		case ErrNotFound:
			response.BadRequest(w, "One or more permission IDs do not exist")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, &BatchResponse{Operation: req.Operation, Affected: affected})
}

// SetupDefaults handles POST /permissions/defaults
func (h *Handler) SetupDefaults(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SetupDefaultPermissions(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// AssignToUser handles POST /users/{id}/permissions
func (h *Handler) AssignToUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
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

	if err := h.service.AssignUserPermission(r.Context(), userID, &req); err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Permission not found")
		case ErrUserNotFound:
			response.NotFound(w, "User not found")
		case ErrCommunityMismatch:
			response.BadRequest(w, "Community ID does not match the permission's community")
		case ErrMembershipNotFound:
			response.NotFound(w, "User has no membership in this community")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// ListCommunity handles GET /communities/{id}/permissions. The actor
// must moderate the community or hold the global admin role.
func (h *Handler) ListCommunity(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.moderators.RequireModerator(r.Context(), actorID, communityID); err != nil {
		response.Forbidden(w, "Moderator access required")
		return
	}

	filter := filterFromQuery(r)
	filter.Scope = string(ScopeSubreddit)
	filter.CommunityID = &communityID

	perms, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, perms, response.NewMeta(total, filter.Page, filter.Limit))
}

// CreateCommunity handles POST /communities/{id}/permissions. The actor
// must moderate the community or hold the global admin role.
func (h *Handler) CreateCommunity(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.moderators.RequireModerator(r.Context(), actorID, communityID); err != nil {
		response.Forbidden(w, "Moderator access required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	// The path owns the scope and community
	req.Scope = string(ScopeSubreddit)
	req.CommunityID = &communityID

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	h.create(w, r, &req)
}

func filterFromQuery(r *http.Request) *ListFilter {
	q := r.URL.Query()

	filter := &ListFilter{
		Scope:    q.Get("scope"),
		Resource: q.Get("resource"),
		Action:   q.Get("action"),
		Search:   q.Get("search"),
		Page:     1,
		Limit:    50,
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}
	if q.Get("active") == "true" {
		filter.ActiveOnly = true
	}
	if id, err := uuid.Parse(q.Get("community_id")); err == nil {
		filter.CommunityID = &id
	}

	return filter
}
