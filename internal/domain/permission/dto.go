package permission

import (
	"github.com/google/uuid"
)

// CreateRequest for POST /permissions and POST /communities/{id}/permissions
type CreateRequest struct {
	Name         string     `json:"name" validate:"required,min=2,max=120"`
	Description  string     `json:"description,omitempty" validate:"max=500"`
	Type         string     `json:"type" validate:"required,perm_type"`
	Scope        string     `json:"scope" validate:"required,perm_scope"`
	Resource     string     `json:"resource" validate:"required,oneof=post comment subreddit user media"`
	Action       string     `json:"action" validate:"required,perm_action"`
	DefaultRoles []string   `json:"default_roles,omitempty" validate:"max=16,dive,min=1,max=64"`
	CommunityID  *uuid.UUID `json:"community_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}

// UpdateRequest for PUT /permissions/{id}; nil fields are left unchanged
type UpdateRequest struct {
	Name         *string   `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	DefaultRoles *[]string `json:"default_roles,omitempty" validate:"omitempty,max=16,dive,min=1,max=64"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// ListFilter for GET /permissions
type ListFilter struct {
	Scope       string
	Resource    string
	Action      string
	Search      string
	CommunityID *uuid.UUID
	ActiveOnly  bool
	Page        int
	Limit       int
}

// AssignRequest for POST /users/{id}/permissions
type AssignRequest struct {
	PermissionID uuid.UUID  `json:"permission_id" validate:"required"`
	CommunityID  *uuid.UUID `json:"community_id,omitempty"`
	Granted      *bool      `json:"granted" validate:"required"`
}

// BatchRequest for POST /permissions/batch
type BatchRequest struct {
	Operation    string      `json:"operation" validate:"required,oneof=activate deactivate update_roles delete"`
	Permissions  []uuid.UUID `json:"permissions" validate:"required,min=1,max=200"`
	DefaultRoles []string    `json:"default_roles,omitempty" validate:"max=16,dive,min=1,max=64"`
}

// BatchResponse reports how many records the batch touched
type BatchResponse struct {
	Operation string `json:"operation"`
	Affected  int    `json:"affected"`
}

// BootstrapResponse summarizes a bootstrap run
type BootstrapResponse struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}
