package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrMissingCredential     = errors.New("missing odds api key")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
