package community

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

// Handler handles community HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates community handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /communities
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

	creatorID := middleware.GetUserID(r.Context())
	c, err := h.service.Create(r.Context(), creatorID, &req)
	if err != nil {
		switch err {
		case ErrAlreadyExists:
			response.Conflict(w, "Community with this slug already exists")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, c)
}

// Get handles GET /communities/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	var (
		c   *Community
		err error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		c, err = h.service.Get(r.Context(), id)
	} else {
		c, err = h.service.GetBySlug(r.Context(), raw)
	}
	if err != nil {
		switch err {
		case ErrNotFound:
			response.NotFound(w, "Community not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, c)
}

// List handles GET /communities
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	limit := 50
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	items, total, err := h.service.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}
