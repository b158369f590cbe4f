package application

import "sync"

// roomLockRegistry hands out one mutex per room id so that every
// conflict-check-then-commit sequence for a room runs under mutual exclusion.
// Locks are created lazily and retained for the process lifetime; the room
// catalog is small enough that the registry never needs eviction.
type roomLockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLockRegistry() *roomLockRegistry {
	return &roomLockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *roomLockRegistry) lockFor(roomID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	return lock
}

// withRoom runs fn while holding the room's mutex. The allocator holds at
// most one room lock at a time, so ordering between rooms cannot deadlock.
func (r *roomLockRegistry) withRoom(roomID string, fn func() error) error {
	lock := r.lockFor(roomID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}
