package role

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents a named bundle of permission references
type Role struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	IsSystem    bool           `db:"is_system" json:"is_system"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Link ties a permission to a role (row in the role_permissions join table)
type Link struct {
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Assignment links a user to a role, optionally scoped to a community
// and optionally expiring. Expired assignments are excluded at
// resolution time, not eagerly deleted.
type Assignment struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	UserID      uuid.UUID     `db:"user_id" json:"user_id"`
	RoleID      uuid.UUID     `db:"role_id" json:"role_id"`
	CommunityID uuid.NullUUID `db:"community_id" json:"community_id,omitempty"`
	ExpiresAt   sql.NullTime  `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// SetMode controls how SetPermissions edits the link set
type SetMode string

const (
	ModeAdd    SetMode = "add"
	ModeRemove SetMode = "remove"
	ModeSet    SetMode = "set"
)
