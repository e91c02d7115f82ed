package community

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// FounderEnroller records the creator's initial moderator membership.
// Satisfied by the membership service.
type FounderEnroller interface {
	EnrollFounder(ctx context.Context, userID, communityID uuid.UUID) error
}

// Service handles community business logic
type Service struct {
	repo     Repository
	enroller FounderEnroller
}

// NewService creates new community service
func NewService(repo Repository, enroller FounderEnroller) *Service {
	return &Service{repo: repo, enroller: enroller}
}

// Create registers a community and enrolls the creator as moderator
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateRequest) (*Community, error) {
	existing, err := s.repo.GetBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	c := &Community{
		ID:        uuid.New(),
		Name:      req.Name,
		Slug:      req.Slug,
		CreatorID: creatorID,
		IsPrivate: req.IsPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != "" {
		c.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	if s.enroller != nil {
		if err := s.enroller.EnrollFounder(ctx, creatorID, c.ID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns a community by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Community, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// GetBySlug returns a community by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Community, error) {
	c, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns communities with the total count
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Community, int, error) {
	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
