package permission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Type distinguishes seeded core permissions from admin-created ones
type Type string

const (
	TypeCore   Type = "core"
	TypeCustom Type = "custom"
)

// Scope tells whether a permission applies platform-wide or to one community
type Scope string

const (
	ScopeSite      Scope = "site"
	ScopeSubreddit Scope = "subreddit"
)

// Known resources and actions. Custom permissions may use the same
// vocabulary; the catalog rejects anything outside it.
const (
	ResourcePost      = "post"
	ResourceComment   = "comment"
	ResourceSubreddit = "subreddit"
	ResourceUser      = "user"
	ResourceMedia     = "media"
)

// Permission represents one catalog entry (matches permissions table).
// DefaultRoles holds the role tags that receive the permission
// automatically: global role names for site scope, membership tiers
// (visitor/member/moderator) or custom role names for subreddit scope.
type Permission struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Description  sql.NullString `db:"description" json:"description,omitempty"`
	Type         Type           `db:"type" json:"type"`
	Scope        Scope          `db:"scope" json:"scope"`
	Resource     string         `db:"resource" json:"resource"`
	Action       string         `db:"action" json:"action"`
	DefaultRoles pq.StringArray `db:"default_roles" json:"default_roles"`
	CommunityID  uuid.NullUUID  `db:"community_id" json:"community_id,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasDefaultRole reports whether a role tag is in the default set
func (p *Permission) HasDefaultRole(role string) bool {
	for _, r := range p.DefaultRoles {
		if r == role {
			return true
		}
	}
	return false
}
