package membership

import "errors"

var (
	ErrNotFound        = errors.New("membership not found")
	ErrAlreadyMember   = errors.New("already a member of this community")
	ErrBanned          = errors.New("user is banned from this community")
	ErrNotPending      = errors.New("membership is not pending approval")
	ErrNotBanned       = errors.New("user is not banned")
	ErrInvalidStatus   = errors.New("invalid membership status")
	ErrNotModerator    = errors.New("caller is not a moderator of this community")
	ErrCannotBanSelf   = errors.New("cannot ban yourself")
	ErrCommunityAbsent = errors.New("community not found")
)
