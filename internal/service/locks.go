package service

import "sync"

// Locks serializes read-modify-write sequences per identity so that
// claim and regenerate cannot interleave on the same bundle. Entries
// are never freed; the table is bounded by the number of identities.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the mutex for identity and returns its release func.
func (l *Locks) Acquire(identity string) func() {
	l.mu.Lock()
	m, ok := l.locks[identity]
	if !ok {
		m = &sync.Mutex{}
		l.locks[identity] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
