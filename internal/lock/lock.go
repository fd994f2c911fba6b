// Package lock provides the per-showing critical section wrapped around
// every seat write.  Redis gives mutual exclusion across server instances;
// Local covers single-instance deployments and Redis outages.
package lock

import (
	"context"
	"errors"
)

var (
	ErrNotAcquired = errors.New("lock not acquired")
	ErrNotOwned    = errors.New("lock not owned")
)

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}
