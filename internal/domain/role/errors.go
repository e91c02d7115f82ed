package role

import "errors"

var (
	ErrNotFound           = errors.New("role not found")
	ErrAlreadyExists      = errors.New("role with this name already exists")
	ErrSystemRole         = errors.New("system roles cannot be deleted")
	ErrPermissionNotFound = errors.New("one or more permission ids do not exist")
	ErrInvalidMode        = errors.New("invalid mode, must be add, remove or set")
)
