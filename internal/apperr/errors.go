package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNoData   = errors.New("no data")
)
