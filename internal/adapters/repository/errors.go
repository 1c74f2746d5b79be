package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrInvalidID    = errors.New("invalid job id")
)
