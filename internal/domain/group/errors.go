package group

import "errors"

// Sentinel kinds for group errors.
var (
	ErrInvalidRoster = errors.New("invalid roster")
)
