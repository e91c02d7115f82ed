package community

import "errors"

var (
	ErrNotFound      = errors.New("community not found")
	ErrAlreadyExists = errors.New("community with this slug already exists")
)
