package parking

import "sync"

// SlotGuard tracks slots with a mutation outstanding against the store.
// Entry and exit controllers share one guard.
type SlotGuard struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func NewSlotGuard() *SlotGuard {
	return &SlotGuard{
		ids: make(map[int]struct{}),
	}
}

func (g *SlotGuard) Acquire(slotID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[slotID]; busy {
		return false
	}
	g.ids[slotID] = struct{}{}
	return true
}

func (g *SlotGuard) Release(slotID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, slotID)
}

func (g *SlotGuard) InFlight(slotID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.ids[slotID]
	return busy
}
