package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Locker serializes work on one key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// DefaultLockTimeout bounds how long an operation waits for a busy key.
const DefaultLockTimeout = 5 * time.Second

// KeyedLocker is an in-process Locker with one semaphore per key. Entries are
// reference counted by holders and waiters and dropped when the last one leaves.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedLocker(timeout time.Duration) *KeyedLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &KeyedLocker{entries: make(map[string]*lockEntry), timeout: timeout}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	case <-timer.C:
		l.release(key)
		return nil, fmt.Errorf("lock %s: timed out after %s", key, l.timeout)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key)
		})
	}, nil
}

func (l *KeyedLocker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// size reports how many keys are tracked.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func orderKey(id int64) string   { return fmt.Sprintf("order:%d", id) }
func bookingKey(id int64) string { return fmt.Sprintf("booking:%d", id) }

const tablesKey = "tables"
