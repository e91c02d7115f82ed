package user

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid global role")
	ErrAlreadyExist = errors.New("user already exists")
)
