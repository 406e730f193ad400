package session

import (
	"context"
	"sync"
)

// Mutex serializes the read, transition and write of one session.
type Mutex interface {
	Acquire(ctx context.Context, key string) (unlock func(), err error)
}

var _ Mutex = (*Locker)(nil)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker serializes work per key. Entries exist only while a key is held or
// awaited.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocker() *Locker {
	return &Locker{locks: map[string]*lockEntry{}}
}

// Lock blocks until key is free and returns the matching unlock function.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Acquire is Lock for the Mutex interface. ctx is not consulted; the wait only
// lasts as long as the current holder's turn.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	return l.Lock(key), nil
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
