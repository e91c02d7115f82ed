package role

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PermissionChecker verifies that referenced permission ids exist.
// Satisfied by the permission repository.
type PermissionChecker interface {
	ExistAll(ctx context.Context, ids []uuid.UUID) (bool, error)
}

// DecisionInvalidator drops cached authorization decisions after a
// registry mutation. Satisfied by the authz cache.
type DecisionInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service handles role registry business logic
type Service struct {
	repo        Repository
	permissions PermissionChecker
	invalidator DecisionInvalidator
}

// NewService creates new role service
func NewService(repo Repository, permissions PermissionChecker, invalidator DecisionInvalidator) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		invalidator: invalidator,
	}
}

// Create registers a new role
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Role, error) {
	existing, err := s.repo.GetByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	role := &Role{
		ID:        uuid.New(),
		Name:      req.Name,
		IsSystem:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != "" {
		role.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Get returns a role with its permission ids
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*RoleResponse, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrNotFound
	}

	ids, err := s.repo.ListPermissionIDs(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &RoleResponse{Role: role, PermissionIDs: ids}, nil
}

// List returns all registered roles
func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

// Update renames a role or changes its description. System roles can be
// updated, only deletion is restricted.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Role, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}

	if err := s.repo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Delete removes a non-system role together with its permission links
// and user assignments
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrNotFound
	}
	if role.IsSystem {
		return ErrSystemRole
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SetPermissions edits the role's permission set. The whole batch is
// validated up front: if any id does not exist, nothing is changed.
func (s *Service) SetPermissions(ctx context.Context, roleID uuid.UUID, req *SetPermissionsRequest) (*RoleResponse, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrNotFound
	}

	mode := SetMode(req.Action)
	switch mode {
	case ModeAdd, ModeRemove, ModeSet:
	default:
		return nil, ErrInvalidMode
	}

	if len(req.PermissionIDs) > 0 {
		ok, err := s.permissions.ExistAll(ctx, req.PermissionIDs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPermissionNotFound
		}
	}

	if err := s.repo.SetPermissions(ctx, roleID, req.PermissionIDs, mode); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	ids, err := s.repo.ListPermissionIDs(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &RoleResponse{Role: role, PermissionIDs: ids}, nil
}

// Assign grants a role to a user, optionally scoped to a community and
// optionally expiring
func (s *Service) Assign(ctx context.Context, roleID uuid.UUID, req *AssignRequest) (*Assignment, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrNotFound
	}

	a := &Assignment{
		ID:        uuid.New(),
		UserID:    req.UserID,
		RoleID:    roleID,
		CreatedAt: time.Now(),
	}
	if req.CommunityID != nil {
		a.CommunityID = uuid.NullUUID{UUID: *req.CommunityID, Valid: true}
	}
	if req.ExpiresAt != nil {
		a.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}

	if err := s.repo.Assign(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

// Unassign revokes a role from a user
func (s *Service) Unassign(ctx context.Context, roleID, userID uuid.UUID) error {
	if err := s.repo.Unassign(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAll(ctx)
	}
}
