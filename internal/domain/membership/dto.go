package membership

import "time"

// BanRequest for POST /communities/{id}/members/{userID}/ban
type BanRequest struct {
	Reason    string     `json:"reason,omitempty" validate:"max=500"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
