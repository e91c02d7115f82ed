package membership

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents a user's standing within one community
// (matches membership_status enum; absence of a record means visitor)
type Status string

const (
	StatusAdmin     Status = "admin"
	StatusModerator Status = "moderator"
	StatusMember    Status = "member"
	StatusBanned    Status = "banned"
	StatusPending   Status = "pending"
	StatusVisitor   Status = "visitor" // never stored, derived at resolution
)

// Membership links a user to a community
type Membership struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	CommunityID   uuid.UUID      `db:"community_id" json:"community_id"`
	Status        Status         `db:"status" json:"status"`
	BanReason     sql.NullString `db:"ban_reason" json:"ban_reason,omitempty"`
	BanExpiration sql.NullTime   `db:"ban_expiration" json:"ban_expiration,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Grant is a permission attached directly to a membership
type Grant struct {
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
	Resource     string    `db:"resource" json:"resource"`
	Action       string    `db:"action" json:"action"`
	IsActive     bool      `db:"is_active" json:"is_active"`
}

// Resolution is the resolver output for one (user, community) pair
type Resolution struct {
	Status       Status  `json:"status"`
	CustomGrants []Grant `json:"custom_grants,omitempty"`
}

// BanActive reports whether a stored ban still applies
func (m *Membership) BanActive(now time.Time) bool {
	if m.Status != StatusBanned {
		return false
	}
	if m.BanExpiration.Valid && m.BanExpiration.Time.Before(now) {
		return false
	}
	return true
}
