package service

import (
	"sync"

	"github.com/google/uuid"
)

// ClaimLocks serializes mutations per claim id. Every writer (canonicalizer,
// confidence apply, decay sweep, evolution agent) must hold the claim's lock
// while reading its snapshot and writing back, so two concurrent runs never
// interleave updates to the same claim.
type ClaimLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*claimLock
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

func NewClaimLocks() *ClaimLocks {
	return &ClaimLocks{locks: make(map[uuid.UUID]*claimLock)}
}

// Lock blocks until the claim's lock is held and returns the unlock func.
func (c *ClaimLocks) Lock(id uuid.UUID) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &claimLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
