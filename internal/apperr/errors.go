package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrDeckFull = errors.New("deck is full")
)
