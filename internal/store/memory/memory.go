// Package memory is an in-process slot store seeded at construction.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"parking-occupancy/internal/parking"
)

type Store struct {
	mu    sync.RWMutex
	slots map[int]parking.Slot
}

// New seeds one free slot per label with ids starting at 1.
func New(labels []string) *Store {
	slots := make(map[int]parking.Slot, len(labels))
	for i, label := range labels {
		slots[i+1] = parking.NewSlot(i+1, label)
	}

	return &Store{
		slots: slots,
	}
}

func NewSeeded(count, rowWidth int) *Store {
	return New(parking.SlotLabels(count, rowWidth))
}

func (s *Store) ListSlots(ctx context.Context) ([]parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]parking.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, slot)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].ID < slots[j].ID
	})

	return slots, nil
}

func (s *Store) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return parking.Slot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return parking.Slot{}, parking.ErrSlotNotFound
	}
	if slot.Occupied() {
		return parking.Slot{}, parking.ErrSlotAlreadyOccupied
	}

	slot = slot.Park(vehicleNumber, entryTime.UTC())
	s.slots[slotID] = slot
	return slot, nil
}

func (s *Store) Release(ctx context.Context, slotID int) (parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return parking.Slot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return parking.Slot{}, parking.ErrSlotNotFound
	}
	if !slot.Occupied() {
		return parking.Slot{}, parking.ErrSlotNotOccupied
	}

	slot = slot.Leave()
	s.slots[slotID] = slot
	return slot, nil
}
