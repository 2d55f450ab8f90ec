package partner

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("partner not found")
	ErrConflict     = errors.New("partner already exists")
	ErrUnauthorized = errors.New("invalid partner credentials")
)
