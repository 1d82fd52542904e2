package service

import "sync"

// userLocks serializes events of one user. Entries are reference counted
// and dropped once nobody holds or waits for them.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*userLock)}
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.m[userID]
	if !ok {
		e = new(userLock)
		l.m[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
