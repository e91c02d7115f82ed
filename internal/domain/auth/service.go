package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/user"
	"github.com/commune/commune-api/internal/pkg/jwt"
	"github.com/commune/commune-api/internal/pkg/password"
)

// Service handles registration and token issuance
type Service struct {
	users  user.Repository
	tokens *jwt.Service
}

// NewService creates auth service
func NewService(users user.Repository, tokens *jwt.Service) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a user with the default global role
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	existing, err = s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.issueTokens(u)
}

// Login verifies credentials and issues a token pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		return nil, ErrUserBanned
	}

	return s.issueTokens(u)
}

// Refresh exchanges a valid refresh token for a new pair. The user
// record is re-read so role and ban changes land in the new claims.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		return nil, ErrUserBanned
	}

	return s.issueTokens(u)
}

// Me returns the user record for the authenticated caller
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (s *Service) issueTokens(u *user.User) (*TokenResponse, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role), u.IsBanned)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         UserResponseFromEntity(u),
	}, nil
}
