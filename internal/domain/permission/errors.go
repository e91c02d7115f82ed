package permission

import "errors"

var (
	ErrNotFound               = errors.New("permission not found")
	ErrAlreadyExists          = errors.New("permission with this name already exists in this scope")
	ErrScopeRequiresCommunity = errors.New("subreddit scope requires a community")
	ErrSiteScopeWithCommunity = errors.New("site scope cannot reference a community")
	ErrCommunityMismatch      = errors.New("community does not match the permission's scope")
	ErrMembershipNotFound     = errors.New("no membership to revoke the grant from")
	ErrInvalidBatchOp         = errors.New("invalid batch operation")
	ErrUserNotFound           = errors.New("user not found")
)
