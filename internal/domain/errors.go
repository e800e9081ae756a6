package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidSlug = errors.New("invalid slug")
)
