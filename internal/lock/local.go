package lock

import (
	"context"
	"sync"
)

// Local is an in-process keyed mutex.  Waiting honours ctx.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local { return &Local{entries: map[string]*localEntry{}} }

func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return &localLease{owner: l, key: key, entry: e}, nil
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}
}

func (l *Local) drop(key string, e *localEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// held reports how many keys currently have holders or waiters.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type localLease struct {
	owner *Local
	key   string
	entry *localEntry
	once  sync.Once
}

func (ll *localLease) Release(context.Context) error {
	err := ErrNotOwned
	ll.once.Do(func() {
		<-ll.entry.ch
		ll.owner.drop(ll.key, ll.entry)
		err = nil
	})
	return err
}
