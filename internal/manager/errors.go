package manager

import "errors"

// Common errors for manager operations
var (
	// ErrNoEnvironments is returned by Initialize when the environment list
	// is empty.
	ErrNoEnvironments = errors.New("environment list must not be empty")

	// ErrDuplicateEnvironment is returned by Initialize when two environments
	// share a name.
	ErrDuplicateEnvironment = errors.New("duplicate environment name")

	// ErrNotInitialized is returned by mutating operations before Initialize
	// has completed.
	ErrNotInitialized = errors.New("environment manager not initialized")

	// ErrUnknownEnvironment is returned by Switch when the target is not in
	// the known environment set.
	ErrUnknownEnvironment = errors.New("unknown environment")
)
