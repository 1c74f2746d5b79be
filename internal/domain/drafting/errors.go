package drafting

import "errors"

// Sentinel kinds for drafting errors.
var (
	ErrInvalidConfig = errors.New("invalid draft config")
	ErrUnknownModel  = errors.New("unknown draft model")
)
