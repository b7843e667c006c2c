package health

import "errors"

var (
	// ErrCheckFailed indicates a dependency probe failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckerNotFound indicates no checker is registered under the
	// requested name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
