package ledger

import "sync"

// ─── Per-Customer Locking ───────────────────────────────────────────────────
// Every credit account (with its invoice set) is a single mutable aggregate.
// Mutations lock only that customer's mutex, so traffic on unrelated accounts
// never serializes. Lock hold time is bounded to in-memory arithmetic plus the
// persistence write.

type customerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a customer, creating it on first touch. Mutexes
// are never removed: accounts are soft state and the map grows with the
// customer base, not with traffic.
func (c *customerLocks) get(customerID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[customerID] = l
	}
	return l
}
