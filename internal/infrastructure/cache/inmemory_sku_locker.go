package cache

import (
	"context"
	"sync"
)

type lockEntry struct {
	held chan struct{}
	refs int
}

// InMemorySKULocker is a keyed mutex for single-instance deployments and tests.
// Entries are dropped once no goroutine holds or waits for the key.
type InMemorySKULocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewInMemorySKULocker creates a new in-memory locker
func NewInMemorySKULocker() *InMemorySKULocker {
	return &InMemorySKULocker{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until key is free or ctx is done
func (l *InMemorySKULocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{held: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.held
				l.unref(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}
}

func (l *InMemorySKULocker) unref(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Size returns the number of keys currently held or awaited
func (l *InMemorySKULocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Close implements SKULocker
func (l *InMemorySKULocker) Close() error {
	return nil
}

var _ SKULocker = (*InMemorySKULocker)(nil)
