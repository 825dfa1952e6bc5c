// Package session provides a minimal server-side session layer: a cookie
// carries an opaque session ID and attributes live in a Store.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNoSession = errors.New("session: no session")
var ErrInvalidID = errors.New("session: invalid session id")

// Store persists session attributes keyed by session ID.
//
// Implementations must be safe for concurrent use. Get reports found=false
// (and a nil error) for an unknown session or attribute; a non-nil error is
// always a storage failure.
type Store interface {
	Get(ctx context.Context, id, key string) (value string, found bool, err error)
	Set(ctx context.Context, id, key, value string) error
	// SetNX stores value only when key is not already present and returns the
	// value that ended up stored.
	SetNX(ctx context.Context, id, key, value string) (stored string, err error)
	Delete(ctx context.Context, id, key string) error
	// Exists reports whether the session holds any state.
	Exists(ctx context.Context, id string) (bool, error)
	// Rename moves every attribute of oldID to newID.
	Rename(ctx context.Context, oldID, newID string) error
	Destroy(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, ttl time.Duration) error
}
