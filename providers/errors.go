package providers

import "errors"

var (
	// ErrDatabaseIsNotReadyYet returns if you are trying to access
	// an offline provider which was closed or not opened.
	ErrDatabaseIsNotReadyYet = errors.New("database is not initialized yet")

	// ErrAuthTokenIsRequired is returned if you are trying to initialize
	// a provider which requires some token to work.
	ErrAuthTokenIsRequired = errors.New("auth token is required")

	// ErrNoFile is returned if database path is not set.
	ErrNoFile = errors.New("database file is not set")
)
