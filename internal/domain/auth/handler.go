package auth

import (
	"encoding/json"
	"net/http"

	"github.com/commune/commune-api/internal/middleware"
	"github.com/commune/commune-api/internal/pkg/jwt"
	"github.com/commune/commune-api/internal/pkg/response"
	"github.com/commune/commune-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	tokens, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch err {
		case ErrEmailTaken:
			response.Conflict(w, "Email already in use")
		case ErrUsernameTaken:
			response.Conflict(w, "Username already in use")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, tokens)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	tokens, err := h.service.Login(r.Context(), &req)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			response.Unauthorized(w, "Invalid email or password")
		case ErrUserBanned:
			response.Forbidden(w, "Your account has been banned")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, tokens)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch err {
		case jwt.ErrInvalidToken, jwt.ErrExpiredToken, ErrInvalidCredentials:
			response.Unauthorized(w, "Invalid refresh token")
		case ErrUserBanned:
			response.Forbidden(w, "Your account has been banned")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, tokens)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		response.NotFound(w, "User not found")
		return
	}

	response.OK(w, UserResponseFromEntity(u))
}
