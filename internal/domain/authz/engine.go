package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/commune/commune-api/internal/domain/membership"
	"github.com/commune/commune-api/internal/domain/user"
)

// CatalogSource answers permission catalog questions.
// Satisfied by the permission repository.
type CatalogSource interface {
	// MatchesDefaultRole reports whether an active permission for
	// (resource, action) lists roleTag among its default roles. A nil
	// communityID means site scope.
	MatchesDefaultRole(ctx context.Context, resource, action, roleTag string, communityID *uuid.UUID) (bool, error)

	// HasAssignedPermission reports whether one of the user's
	// non-expired role assignments carries an active site-scope
	// permission for (resource, action).
	HasAssignedPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

// GrantSource answers direct user grant questions.
// Satisfied by the user repository.
type GrantSource interface {
	HasCustomPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

// UserSource loads user records for the global role check.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// MembershipResolver resolves community standing.
// Satisfied by the membership resolver.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, communityID uuid.UUID) (*membership.Resolution, error)
}

// Engine evaluates authorization decisions. Rules run in a fixed order
// and the first match wins; an active community ban wins over everything
// else for that community's resources.
type Engine struct {
	catalog  CatalogSource
	grants   GrantSource
	users    UserSource
	resolver MembershipResolver
	cache    DecisionCache // nil disables caching
}

// NewEngine creates a decision engine. Pass a nil cache to re-read
// storage on every call.
func NewEngine(catalog CatalogSource, grants GrantSource, users UserSource, resolver MembershipResolver, cache DecisionCache) *Engine {
	return &Engine{
		catalog:  catalog,
		grants:   grants,
		users:    users,
		resolver: resolver,
		cache:    cache,
	}
}

// Authorize reports whether the user may perform action on resource,
// optionally within a community.
//
// Evaluation order:
//  1. active community ban denies
//  2. global admin allows
//  3. any site-scope source allows (global role defaults, role
//     assignments, direct user grants)
//  4. moderator-tier community defaults
//  5. membership custom grants
//  6. member-tier community defaults
//  7. visitor-tier community defaults
//  8. deny
func (e *Engine) Authorize(ctx context.Context, userID uuid.UUID, resource, action string, communityID *uuid.UUID) (bool, error) {
	key := resource + ":" + action
	if e.cache != nil {
		if allowed, ok := e.cache.Get(ctx, userID, communityID, key); ok {
			return allowed, nil
		}
	}

	allowed, err := e.decide(ctx, userID, resource, action, communityID)
	if err != nil {
		return false, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, userID, communityID, key, allowed)
	}
	return allowed, nil
}

func (e *Engine) decide(ctx context.Context, userID uuid.UUID, resource, action string, communityID *uuid.UUID) (bool, error) {
	var res *membership.Resolution
	if communityID != nil {
		var err error
		res, err = e.resolver.Resolve(ctx, userID, *communityID)
		if err != nil {
			return false, err
		}
		// An active ban is terminal for this community; no grant or
		// role can override it
		if res.Status == membership.StatusBanned {
			return false, nil
		}
	}

	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	if u.IsAdmin() {
		return true, nil
	}

	// Site scope: global role defaults, then role assignments, then
	// direct user grants
	ok, err := e.catalog.MatchesDefaultRole(ctx, resource, action, string(u.Role), nil)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	ok, err = e.catalog.HasAssignedPermission(ctx, userID, resource, action)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	ok, err = e.grants.HasCustomPermission(ctx, userID, resource, action)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	if communityID == nil {
		return false, nil
	}

	tier := res.Tier()

	if res.IsModerator() {
		ok, err = e.catalog.MatchesDefaultRole(ctx, resource, action, string(membership.StatusModerator), communityID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	for _, g := range res.CustomGrants {
		if g.IsActive && g.Resource == resource && g.Action == action {
			return true, nil
		}
	}

	if tier == membership.StatusMember || res.IsModerator() {
		ok, err = e.catalog.MatchesDefaultRole(ctx, resource, action, string(membership.StatusMember), communityID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	if tier == membership.StatusVisitor {
		ok, err = e.catalog.MatchesDefaultRole(ctx, resource, action, string(membership.StatusVisitor), communityID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}
