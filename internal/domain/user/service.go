package user

import (
	"context"

	"github.com/google/uuid"
)

// DecisionInvalidator retires cached authorization decisions after a
// user mutation. Satisfied by the authz decision cache.
type DecisionInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID)
}

// Service handles user administration
type Service struct {
	repo        Repository
	invalidator DecisionInvalidator
}

// NewService creates user service
func NewService(repo Repository, invalidator DecisionInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// UpdateRole changes a user's global role
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	if !IsValidRole(role) {
		return ErrInvalidRole
	}
	if err := s.repo.UpdateRole(ctx, id, Role(role)); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// SetBanned flips the site-wide ban flag. Existing access tokens keep
// their old claims until they expire or are refreshed.
func (s *Service) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	if err := s.repo.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, id, nil)
	}
}
