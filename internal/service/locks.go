package service

import "sync"

// TicketLocks serializes mutations per ticket id. The state machine, parts
// register, and webhook reconciliation all acquire the ticket's lock before
// the read-recompute-write cycle, so ledger recomputation and the final-order
// check never race in-process. The conditional order-id writes in the
// repository remain the cross-process guard.
type TicketLocks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewTicketLocks creates an empty lock set.
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{locks: make(map[string]*entry)}
}

// Lock acquires the lock for the ticket id and returns its release function.
func (l *TicketLocks) Lock(ticketID string) func() {
	l.mu.Lock()
	e, ok := l.locks[ticketID]
	if !ok {
		e = &entry{}
		l.locks[ticketID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, ticketID)
		}
		l.mu.Unlock()
	}
}
