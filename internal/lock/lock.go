// Package lock serializes mutations of a single interview session.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive, per-key locks. Lock blocks until the lock is
// held or ctx is done; the returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
