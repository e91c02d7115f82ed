package permission

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/membership"
	"github.com/commune/commune-api/internal/domain/user"
)

// DecisionInvalidator retires cached authorization decisions after a
// catalog or grant mutation. Satisfied by the authz decision cache.
type DecisionInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID)
	InvalidateAll(ctx context.Context)
}

// Service handles permission catalog and grant business logic
type Service struct {
	repo           Repository
	membershipRepo membership.Repository
	userRepo       user.Repository
	invalidator    DecisionInvalidator // nil when caching is disabled
	seed           *seedCatalog
}

// NewService creates permission service
func NewService(repo Repository, membershipRepo membership.Repository, userRepo user.Repository, invalidator DecisionInvalidator) (*Service, error) {
	seed, err := loadSeedCatalog()
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:           repo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		invalidator:    invalidator,
		seed:           seed,
	}, nil
}

// Create adds a permission to the catalog
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Permission, error) {
	scope := Scope(req.Scope)
	if scope == ScopeSubreddit && req.CommunityID == nil {
		return nil, ErrScopeRequiresCommunity
	}
	if scope == ScopeSite && req.CommunityID != nil {
		return nil, ErrSiteScopeWithCommunity
	}

	existing, err := s.repo.GetByName(ctx, req.Name, scope, req.CommunityID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	p := &Permission{
		ID:           uuid.New(),
		Name:         req.Name,
		Type:         Type(req.Type),
		Scope:        scope,
		Resource:     req.Resource,
		Action:       req.Action,
		DefaultRoles: req.DefaultRoles,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Description != "" {
		p.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.CommunityID != nil {
		p.CommunityID = uuid.NullUUID{UUID: *req.CommunityID, Valid: true}
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Push into roles named by the default tags. Tags naming membership
	// tiers have no Role row and are skipped by the query.
	if len(p.DefaultRoles) > 0 {
		if err := s.repo.AttachToRoles(ctx, p.ID, p.DefaultRoles); err != nil {
			return nil, err
		}
	}

	s.invalidateAll(ctx)
	return p, nil
}

// Get returns a catalog entry by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Permission, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns catalog entries matching the filter plus a total count
func (s *Service) List(ctx context.Context, filter *ListFilter) ([]*Permission, int, error) {
	return s.repo.List(ctx, filter)
}

// Update patches a catalog entry. A change to the default-role set
// synchronizes role links: removed tags are pulled from the matching
// Roles, added tags are pushed into them.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Permission, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	var added, removed []string
	if req.DefaultRoles != nil {
		added, removed = diffRoles(p.DefaultRoles, *req.DefaultRoles)
		p.DefaultRoles = *req.DefaultRoles
	}

	if err := s.repo.Update(ctx, p, added, removed); err != nil {
		return nil, err
	}

	s.invalidateAll(ctx)
	return p, nil
}

// Delete unlinks the permission everywhere, then removes it
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// AssignUserPermission grants or revokes a permission for one user.
// Subreddit-scope grants attach to the user's membership, creating a
// member-status membership when granting to a user without one.
// Site-scope grants toggle the user's direct custom permissions.
func (s *Service) AssignUserPermission(ctx context.Context, userID uuid.UUID, req *AssignRequest) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}

	p, err := s.repo.GetByID(ctx, req.PermissionID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}

	granted := req.Granted != nil && *req.Granted

	if p.Scope == ScopeSite {
		if granted {
			if err := s.userRepo.AddCustomPermission(ctx, userID, p.ID); err != nil {
				return err
			}
		} else {
			if _, err := s.userRepo.RemoveCustomPermission(ctx, userID, p.ID); err != nil {
				return err
			}
		}
		s.invalidateUser(ctx, userID, nil)
		return nil
	}

	// Subreddit scope: the permission's own community is authoritative
	communityID := p.CommunityID.UUID
	if req.CommunityID != nil && *req.CommunityID != communityID {
		return ErrCommunityMismatch
	}

	m, err := s.membershipRepo.Get(ctx, userID, communityID)
	if err != nil {
		return err
	}

	if !granted {
		if m == nil {
			return ErrMembershipNotFound
		}
		if _, err := s.membershipRepo.RemoveGrant(ctx, m.ID, p.ID); err != nil {
			return err
		}
		s.invalidateUser(ctx, userID, &communityID)
		return nil
	}

	if m == nil {
		now := time.Now()
		m = &membership.Membership{
			ID:          uuid.New(),
			UserID:      userID,
			CommunityID: communityID,
			Status:      membership.StatusMember,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.membershipRepo.Create(ctx, m); err != nil {
			return err
		}
	}
	if err := s.membershipRepo.AddGrant(ctx, m.ID, p.ID); err != nil {
		return err
	}

	s.invalidateUser(ctx, userID, &communityID)
	return nil
}

// BatchOperation applies one operation across a list of permissions and
// returns how many records it touched
func (s *Service) BatchOperation(ctx context.Context, req *BatchRequest) (int, error) {
	var affected int

	switch req.Operation {
	case "activate":
		n, err := s.repo.SetActive(ctx, req.Permissions, true)
		if err != nil {
			return 0, err
		}
		affected = n
	case "deactivate":
		n, err := s.repo.SetActive(ctx, req.Permissions, false)
		if err != nil {
			return 0, err
		}
		affected = n
	case "update_roles":
		for _, id := range req.Permissions {
			p, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return affected, err
			}
			if p == nil {
				continue
			}
			added, removed := diffRoles(p.DefaultRoles, req.DefaultRoles)
			p.DefaultRoles = req.DefaultRoles
			if err := s.repo.Update(ctx, p, added, removed); err != nil {
				return affected, err
			}
			affected++
		}
	case "delete":
		for _, id := range req.Permissions {
			err := s.repo.DeleteCascade(ctx, id)
			if err != nil {
				if err == ErrNotFound {
					continue
				}
				return affected, err
			}
			affected++
		}
	default:
		return 0, ErrInvalidBatchOp
	}

	s.invalidateAll(ctx)
	return affected, nil
}

// SetupDefaultPermissions seeds the canonical core permission set.
// Idempotent: entries are keyed by (name, site scope) and role
// attachments insert-or-skip, so a second run changes nothing.
func (s *Service) SetupDefaultPermissions(ctx context.Context) (*BootstrapResponse, error) {
	resp := &BootstrapResponse{}

	for _, seed := range s.seed.Permissions {
		existing, err := s.repo.GetByName(ctx, seed.Name, ScopeSite, nil)
		if err != nil {
			return nil, err
		}

		var permID uuid.UUID
		if existing != nil {
			permID = existing.ID
			resp.Existing++
		} else {
			now := time.Now()
			p := &Permission{
				ID:           uuid.New(),
				Name:         seed.Name,
				Description:  sql.NullString{String: seed.Description, Valid: seed.Description != ""},
				Type:         TypeCore,
				Scope:        ScopeSite,
				Resource:     seed.Resource,
				Action:       seed.Action,
				DefaultRoles: seed.DefaultRoles,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.Create(ctx, p); err != nil {
				return nil, err
			}
			permID = p.ID
			resp.Created++
		}

		if err := s.repo.AttachToRoles(ctx, permID, seed.DefaultRoles); err != nil {
			return nil, err
		}
	}

	s.invalidateAll(ctx)
	return resp, nil
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAll(ctx)
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, userID, communityID)
	}
}

// diffRoles returns tags present only in next (added) and only in prev (removed)
func diffRoles(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, r := range prev {
		prevSet[r] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, r := range next {
		nextSet[r] = struct{}{}
		if _, ok := prevSet[r]; !ok {
			added = append(added, r)
		}
	}
	for _, r := range prev {
		if _, ok := nextSet[r]; !ok {
			removed = append(removed, r)
		}
	}
	return added, removed
}
