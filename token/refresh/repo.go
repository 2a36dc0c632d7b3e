package refresh

import (
	"context"
	"time"
)

// Repo is the durable store for refresh records.
type Repo interface {
	// FindActiveByHash returns the active record for hash joined with its
	// user, or errors.ErrNotFound.
	FindActiveByHash(ctx context.Context, hash string, now time.Time) (*Record, error)

	Add(ctx context.Context, record *Record) error

	// Rotate atomically revokes old, points it at next and stores next, on
	// the condition that old is still active at now. A failed condition is
	// errors.ErrInvalidRefreshToken and nothing is written.
	Rotate(ctx context.Context, old, next *Record, now time.Time) error

	// RevokeByHash revokes the active record for hash, if any. Unknown or
	// already revoked hashes are not an error.
	RevokeByHash(ctx context.Context, hash string, now time.Time, meta Metadata) error

	// Purge deletes records that expired or were revoked before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
