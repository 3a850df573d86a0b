package parking

import (
	"context"
	"time"
)

// SlotStore is the remote collection that owns slot records. Implementations
// report failures with the sentinel errors of this package so controllers can
// tell a rejected transition from an unreachable store.
type SlotStore interface {
	ListSlots(ctx context.Context) ([]Slot, error)
	Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (Slot, error)
	Release(ctx context.Context, slotID int) (Slot, error)
}
