package shipments

import (
	"sync"

	"github.com/google/uuid"
)

// shipmentLocks serializes leg transitions per shipment. Legs of different
// shipments proceed in parallel; two legs of the same shipment never mutate
// concurrently.
type shipmentLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newShipmentLocks() *shipmentLocks {
	return &shipmentLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the per-shipment mutex and returns its release func.
func (l *shipmentLocks) Lock(shipmentID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[shipmentID]
	if !ok {
		entry = &lockEntry{}
		l.locks[shipmentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, shipmentID)
		}
		l.mu.Unlock()
	}
}
