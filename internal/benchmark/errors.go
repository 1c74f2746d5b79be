package benchmark

import "errors"

// Sentinel kinds for benchmark errors.
var (
	ErrLoad            = errors.New("load scenarios failed")
	ErrInvalidScenario = errors.New("invalid benchmark scenario")
	ErrRemote          = errors.New("remote multiplier request failed")
)
