package database

import "errors"

var (
	// ErrClosed indicates the pool has been closed.
	ErrClosed = errors.New("database: closed")

	// ErrBadConfig indicates the connection settings are unusable.
	ErrBadConfig = errors.New("database: bad config")
)
