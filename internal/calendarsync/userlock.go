package calendarsync

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks is a keyed advisory lock table with one entry per in-flight
// user cycle. Entries are removed on release, so the table stays bounded by
// the number of concurrently syncing users.
type userLocks struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{
		active: make(map[uuid.UUID]struct{}),
	}
}

// tryAcquire claims the lock for the user. Returns false if a cycle for the
// same user is already in flight.
func (l *userLocks) tryAcquire(userID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[userID]; held {
		return false
	}
	l.active[userID] = struct{}{}
	return true
}

// release frees the user's lock.
func (l *userLocks) release(userID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, userID)
}
