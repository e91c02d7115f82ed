package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Resolver answers the question "what is this user's standing in this
// community, and which custom grants come with it". Absent records and
// pending join requests both resolve as visitor standing; an expired ban
// resolves as member without eagerly rewriting the record.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver creates a membership resolver
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve returns the user's status in the community plus custom grants
func (r *Resolver) Resolve(ctx context.Context, userID, communityID uuid.UUID) (*Resolution, error) {
	m, err := r.repo.Get(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &Resolution{Status: StatusVisitor}, nil
	}

	status := m.Status
	switch status {
	case StatusBanned:
		if !m.BanActive(r.now()) {
			// Ban expired; treated as member until the record is rewritten
			status = StatusMember
		}
	case StatusPending:
		// Awaiting approval, no member standing yet
		return &Resolution{Status: StatusPending}, nil
	}

	if status == StatusBanned {
		// Banned is terminal for grant lookups
		return &Resolution{Status: StatusBanned}, nil
	}

	grants, err := r.repo.ListGrants(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	return &Resolution{Status: status, CustomGrants: grants}, nil
}

// Tier reduces a resolved status to its authorization tier.
// Pending and visitor collapse into visitor.
func (res *Resolution) Tier() Status {
	switch res.Status {
	case StatusAdmin, StatusModerator, StatusMember, StatusBanned:
		return res.Status
	default:
		return StatusVisitor
	}
}

// IsModerator reports moderator-or-better community standing
func (res *Resolution) IsModerator() bool {
	return res.Status == StatusModerator || res.Status == StatusAdmin
}
