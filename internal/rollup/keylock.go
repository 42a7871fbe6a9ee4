package rollup

import (
	"sync"

	"github.com/google/uuid"
)

// unitKey identifies one rollup row: a topic or module within an enrollment.
type unitKey struct {
	unit       uuid.UUID
	enrollment uuid.UUID
}

// keyLock is a set of mutexes keyed by unit. Entries are dropped once no
// goroutine holds or waits on them.
type keyLock struct {
	mu    sync.Mutex
	locks map[unitKey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[unitKey]*refMutex)}
}

// Lock acquires the mutex for k and returns its release function.
func (l *keyLock) Lock(k unitKey) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[k]
	if !ok {
		m = &refMutex{}
		l.locks[k] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, k)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live entries.
func (l *keyLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
