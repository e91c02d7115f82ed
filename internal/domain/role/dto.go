package role

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest for POST /roles
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// UpdateRequest for PUT /roles/{id}
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=64"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// SetPermissionsRequest for POST /roles/{id}/permissions
type SetPermissionsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" validate:"max=200"`
	Action        string      `json:"action" validate:"required,oneof=add remove set"`
}

// AssignRequest for POST /roles/{id}/assignments
type AssignRequest struct {
	UserID      uuid.UUID  `json:"user_id" validate:"required"`
	CommunityID *uuid.UUID `json:"community_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// RoleResponse represents a role with its permission ids
type RoleResponse struct {
	*Role
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}
