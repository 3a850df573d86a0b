package parking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"parking-occupancy/internal/logging"
)

// SnapshotCache holds the last full slot set fetched from the store. The
// snapshot is only ever replaced as a whole, and never by a listing that
// started before the one already installed.
type SnapshotCache struct {
	store    SlotStore
	snapshot atomic.Pointer[[]Slot]

	// started numbers each listing; installMu guards installed and orders
	// installs with subscriber delivery.
	started   atomic.Uint64
	installMu sync.Mutex
	installed uint64

	mu          sync.Mutex
	subscribers []func([]Slot)
}

func NewSnapshotCache(store SlotStore) *SnapshotCache {
	c := &SnapshotCache{store: store}
	empty := []Slot{}
	c.snapshot.Store(&empty)
	return c
}

// Refresh reloads the snapshot. On failure the previous snapshot is kept and
// the returned error wraps ErrStoreUnavailable. A listing that completes after
// a newer one was installed is dropped.
func (c *SnapshotCache) Refresh(ctx context.Context) error {
	generation := c.started.Add(1)
	slots, err := c.store.ListSlots(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	next := slices.Clone(slots)
	if next == nil {
		next = []Slot{}
	}

	c.installMu.Lock()
	defer c.installMu.Unlock()
	if generation < c.installed {
		logging.Debug(ctx).Uint64("generation", generation).Msg("stale slot listing dropped")
		return nil
	}
	c.installed = generation
	c.snapshot.Store(&next)

	c.mu.Lock()
	subscribers := slices.Clone(c.subscribers)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(slices.Clone(next))
	}
	return nil
}

func (c *SnapshotCache) Current() []Slot {
	return slices.Clone(*c.snapshot.Load())
}

// Find looks a slot up by id in the current snapshot.
func (c *SnapshotCache) Find(slotID int) (Slot, bool) {
	for _, slot := range *c.snapshot.Load() {
		if slot.ID == slotID {
			return slot, true
		}
	}
	return Slot{}, false
}

// Subscribe registers fn to receive every snapshot installed by Refresh.
func (c *SnapshotCache) Subscribe(fn func([]Slot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func FreeSlots(slots []Slot) []Slot {
	free := []Slot{}
	for _, slot := range slots {
		if !slot.Occupied() {
			free = append(free, slot)
		}
	}
	return free
}

func OccupiedSlots(slots []Slot) []Slot {
	occupied := []Slot{}
	for _, slot := range slots {
		if slot.Occupied() {
			occupied = append(occupied, slot)
		}
	}
	return occupied
}
