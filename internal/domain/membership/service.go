package membership

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/community"
	"github.com/commune/commune-api/internal/domain/user"
)

// DecisionInvalidator retires cached authorization decisions after a
// membership mutation. Satisfied by the authz decision cache.
type DecisionInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID)
}

// Service handles membership lifecycle
type Service struct {
	repo          Repository
	communityRepo community.Repository
	userRepo      user.Repository
	resolver      *Resolver
	invalidator   DecisionInvalidator // nil when caching is disabled
}

// NewService creates membership service
func NewService(repo Repository, communityRepo community.Repository, userRepo user.Repository, resolver *Resolver, invalidator DecisionInvalidator) *Service {
	return &Service{
		repo:          repo,
		communityRepo: communityRepo,
		userRepo:      userRepo,
		resolver:      resolver,
		invalidator:   invalidator,
	}
}

// Resolver exposes the resolver for collaborators
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Join creates a membership record. Private communities start as pending.
func (s *Service) Join(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error) {
	c, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCommunityAbsent
	}

	existing, err := s.repo.Get(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.BanActive(time.Now()) {
			return nil, ErrBanned
		}
		return nil, ErrAlreadyMember
	}

	status := StatusMember
	if c.IsPrivate {
		status = StatusPending
	}

	now := time.Now()
	m := &Membership{
		ID:          uuid.New(),
		UserID:      userID,
		CommunityID: communityID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, communityID)
	return m, nil
}

// EnrollFounder records the community creator as its first moderator
func (s *Service) EnrollFounder(ctx context.Context, userID, communityID uuid.UUID) error {
	now := time.Now()
	m := &Membership{
		ID:          uuid.New(),
		UserID:      userID,
		CommunityID: communityID,
		Status:      StatusModerator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx, userID, communityID)
	return nil
}

// Leave deletes the caller's membership record
func (s *Service) Leave(ctx context.Context, userID, communityID uuid.UUID) error {
	existing, err := s.repo.Get(ctx, userID, communityID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	// A banned user cannot clear the ban by leaving
	if existing.BanActive(time.Now()) {
		return ErrBanned
	}
	if err := s.repo.Delete(ctx, userID, communityID); err != nil {
		return err
	}
	s.invalidate(ctx, userID, communityID)
	return nil
}

// Approve converts a pending join request to member status
func (s *Service) Approve(ctx context.Context, actorID, targetID, communityID uuid.UUID) error {
	if err := s.RequireModerator(ctx, actorID, communityID); err != nil {
		return err
	}
	m, err := s.repo.Get(ctx, targetID, communityID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	if m.Status != StatusPending {
		return ErrNotPending
	}
	if err := s.repo.UpdateStatus(ctx, m.ID, StatusMember); err != nil {
		return err
	}
	s.invalidate(ctx, targetID, communityID)
	return nil
}

// Ban marks the membership banned; creates the record first for users
// without one so the ban sticks
func (s *Service) Ban(ctx context.Context, actorID, targetID, communityID uuid.UUID, reason string, expiration *time.Time) error {
	if actorID == targetID {
		return ErrCannotBanSelf
	}
	if err := s.RequireModerator(ctx, actorID, communityID); err != nil {
		return err
	}

	var banReason sql.NullString
	if reason != "" {
		banReason = sql.NullString{String: reason, Valid: true}
	}
	var banExpiration sql.NullTime
	if expiration != nil {
		banExpiration = sql.NullTime{Time: *expiration, Valid: true}
	}

	m, err := s.repo.Get(ctx, targetID, communityID)
	if err != nil {
		return err
	}
	if m == nil {
		now := time.Now()
		m = &Membership{
			ID:            uuid.New(),
			UserID:        targetID,
			CommunityID:   communityID,
			Status:        StatusBanned,
			BanReason:     banReason,
			BanExpiration: banExpiration,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
	} else {
		if err := s.repo.UpdateBan(ctx, m.ID, banReason, banExpiration); err != nil {
			return err
		}
	}

	s.invalidate(ctx, targetID, communityID)
	return nil
}

// Unban reverts a banned membership to member status
func (s *Service) Unban(ctx context.Context, actorID, targetID, communityID uuid.UUID) error {
	if err := s.RequireModerator(ctx, actorID, communityID); err != nil {
		return err
	}
	m, err := s.repo.Get(ctx, targetID, communityID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	if m.Status != StatusBanned {
		return ErrNotBanned
	}
	if err := s.repo.UpdateStatus(ctx, m.ID, StatusMember); err != nil {
		return err
	}
	s.invalidate(ctx, targetID, communityID)
	return nil
}

// SetStatus promotes or demotes between member and moderator
func (s *Service) SetStatus(ctx context.Context, actorID, targetID, communityID uuid.UUID, status Status) error {
	if status != StatusMember && status != StatusModerator {
		return ErrInvalidStatus
	}
	if err := s.RequireModerator(ctx, actorID, communityID); err != nil {
		return err
	}
	m, err := s.repo.Get(ctx, targetID, communityID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	if m.BanActive(time.Now()) {
		return ErrBanned
	}
	if err := s.repo.UpdateStatus(ctx, m.ID, status); err != nil {
		return err
	}
	s.invalidate(ctx, targetID, communityID)
	return nil
}

// ListMembers returns memberships in a community
func (s *Service) ListMembers(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]*Membership, error) {
	return s.repo.ListByCommunity(ctx, communityID, limit, offset)
}

// RequireModerator rejects actors without moderator-or-better standing
// in the community. Global admins always pass.
func (s *Service) RequireModerator(ctx context.Context, actorID, communityID uuid.UUID) error {
	u, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if u != nil && u.IsAdmin() {
		return nil
	}
	res, err := s.resolver.Resolve(ctx, actorID, communityID)
	if err != nil {
		return err
	}
	if !res.IsModerator() {
		return ErrNotModerator
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID, communityID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, userID, &communityID)
	}
}
