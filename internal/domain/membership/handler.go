package membership

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/middleware"
	"github.com/commune/commune-api/internal/pkg/response"
	"github.com/commune/commune-api/internal/pkg/validator"
)

// Handler handles membership HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates membership handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Join handles POST /communities/{id}/join
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	m, err := h.service.Join(r.Context(), userID, communityID)
	if err != nil {
		switch err {
		case ErrCommunityAbsent:
			response.NotFound(w, "Community not found")
		case ErrAlreadyMember:
			response.Conflict(w, "Already a member of this community")
		case ErrBanned:
			response.Forbidden(w, "You are banned from this community")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, m)
}

// Leave handles DELETE /communities/{id}/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Leave(r.Context(), userID, communityID); err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Membership not found")
		case ErrBanned:
			response.Forbidden(w, "You are banned from this community")
		default:
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// List handles GET /communities/{id}/members
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return
	}

	q := r.URL.Query()
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	limit := 50
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	members, err := h.service.ListMembers(r.Context(), communityID, limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, members)
}

// Approve handles POST /communities/{id}/members/{userID}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	communityID, targetID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.service.Approve(r.Context(), actorID, targetID, communityID); err != nil {
		h.writeModerationError(w, err)
		return
	}

	response.NoContent(w)
}

// Ban handles POST /communities/{id}/members/{userID}/ban
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	communityID, targetID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	var req BanRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
		if errors := validator.Validate(&req); errors != nil {
			response.ValidationError(w, errors)
			return
		}
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.service.Ban(r.Context(), actorID, targetID, communityID, req.Reason, req.ExpiresAt); err != nil {
		switch err {
		case ErrCannotBanSelf:
			response.BadRequest(w, "Cannot ban yourself")
		default:
			h.writeModerationError(w, err)
		}
		return
	}

	response.NoContent(w)
}

// Unban handles POST /communities/{id}/members/{userID}/unban
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	communityID, targetID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.service.Unban(r.Context(), actorID, targetID, communityID); err != nil {
		switch err {
		case ErrNotBanned:
			response.BadRequest(w, "User is not banned")
		default:
			h.writeModerationError(w, err)
		}
		return
	}

	response.NoContent(w)
}

// Promote handles POST /communities/{id}/members/{userID}/promote
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusModerator)
}

// Demote handles POST /communities/{id}/members/{userID}/demote
func (h *Handler) Demote(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusMember)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status Status) {
	communityID, targetID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if err := h.service.SetStatus(r.Context(), actorID, targetID, communityID, status); err != nil {
		switch err {
		case ErrInvalidStatus:
			response.BadRequest(w, "Status must be member or moderator")
		default:
			h.writeModerationError(w, err)
		}
		return
	}

	response.NoContent(w)
}

func (h *Handler) writeModerationError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotModerator:
		response.Forbidden(w, "Moderator access required")
	case ErrNotFound:
		response.NotFound(w, "Membership not found")
	case ErrNotPending:
		response.BadRequest(w, "Membership is not pending approval")
	default:
		response.InternalError(w)
	}
}

func pathIDs(w http.ResponseWriter, r *http.Request) (communityID, userID uuid.UUID, ok bool) {
	communityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid community ID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return uuid.Nil, uuid.Nil, false
	}
	return communityID, userID, true
}
