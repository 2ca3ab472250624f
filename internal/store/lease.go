package store

import (
	"context"
	"sync"
	"time"
)

// leaseManager serializes merges per canonical UUID. Leases over different
// UUIDs do not order relative to each other.
type leaseManager struct {
	mu    sync.Mutex
	slots map[string]*leaseSlot
}

type leaseSlot struct {
	sem  chan struct{}
	refs int
}

func newLeaseManager() *leaseManager {
	return &leaseManager{slots: make(map[string]*leaseSlot)}
}

func (m *leaseManager) acquire(ctx context.Context, uuid string, timeout time.Duration) (*Lease, error) {
	m.mu.Lock()
	slot, ok := m.slots[uuid]
	if !ok {
		slot = &leaseSlot{sem: make(chan struct{}, 1)}
		m.slots[uuid] = slot
	}
	slot.refs++
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot.sem <- struct{}{}:
		return &Lease{
			UUID: uuid,
			release: func() {
				<-slot.sem
				m.put(uuid)
			},
		}, nil
	case <-timer.C:
		m.put(uuid)
		return nil, ErrLeaseTimeout
	case <-ctx.Done():
		m.put(uuid)
		return nil, ctx.Err()
	}
}

func (m *leaseManager) put(uuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[uuid]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs <= 0 {
		delete(m.slots, uuid)
	}
}
