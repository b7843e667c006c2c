package querycache

import "errors"

// Configuration errors. New fails fast on these; everything that can go
// wrong after construction degrades to a miss or a skipped store instead.
var (
	// ErrInvalidTTL indicates a negative TTL.
	ErrInvalidTTL = errors.New("querycache: ttl must be positive")

	// ErrInvalidMaxEntries indicates a non-positive memory entry limit.
	ErrInvalidMaxEntries = errors.New("querycache: max memory entries must be positive")

	// ErrInvalidMaxEntryBytes indicates a non-positive per-entry size limit.
	ErrInvalidMaxEntryBytes = errors.New("querycache: max entry bytes must be positive")

	// ErrInvalidSweepInterval indicates a negative sweep interval.
	ErrInvalidSweepInterval = errors.New("querycache: sweep interval must not be negative")

	// ErrMissingDir indicates an empty storage directory path.
	ErrMissingDir = errors.New("querycache: storage directory is required")
)
