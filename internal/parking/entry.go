package parking

import (
	"context"
	"fmt"
	"sync"

	"parking-occupancy/internal/logging"
)

type EntryController struct {
	store    SlotStore
	cache    *SnapshotCache
	guard    *SlotGuard
	notifier Notifier
	clock    Clock
}

func NewEntryController(store SlotStore, cache *SnapshotCache, guard *SlotGuard, notifier Notifier, clock Clock) *EntryController {
	if guard == nil {
		guard = NewSlotGuard()
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if clock == nil {
		clock = SystemClock
	}
	return &EntryController{
		store:    store,
		cache:    cache,
		guard:    guard,
		notifier: notifier,
		clock:    clock,
	}
}

// FreeSlots lists the assignable slots of the current snapshot.
func (c *EntryController) FreeSlots() []Slot {
	return FreeSlots(c.cache.Current())
}

// AssignVehicle parks vehicleNumber in slotID. Invalid plates are rejected
// with ErrInvalidPlate before the store is contacted.
func (c *EntryController) AssignVehicle(ctx context.Context, slotID int, vehicleNumber string) (Slot, error) {
	if !ValidPlate(vehicleNumber) {
		return Slot{}, ErrInvalidPlate
	}

	if !c.guard.Acquire(slotID) {
		return Slot{}, fmt.Errorf("assign slot %d: %w", slotID, ErrOperationInFlight)
	}
	defer c.guard.Release(slotID)

	slot, err := c.store.Occupy(ctx, slotID, vehicleNumber, c.clock.Now())
	if err != nil {
		logging.Warn(ctx).Err(err).Int("slot_id", slotID).Str("vehicle_number", vehicleNumber).Msg("assign rejected")
		return Slot{}, fmt.Errorf("assign slot %d: %w", slotID, err)
	}

	if err := c.cache.Refresh(ctx); err != nil {
		logging.Warn(ctx).Err(err).Int("slot_id", slotID).Msg("snapshot refresh after assign failed")
	}

	logging.Info(ctx).Int("slot_id", slotID).Str("vehicle_number", vehicleNumber).Msg("vehicle parked")
	c.notifier.Notify(ctx, fmt.Sprintf("Vehicle %s parked in slot %d", vehicleNumber, slotID))
	return slot, nil
}

// AssignFirstFree parks vehicleNumber in the first free slot of the current
// snapshot.
func (c *EntryController) AssignFirstFree(ctx context.Context, vehicleNumber string) (Slot, error) {
	if !ValidPlate(vehicleNumber) {
		return Slot{}, ErrInvalidPlate
	}

	free := c.FreeSlots()
	if len(free) == 0 {
		return Slot{}, ErrLotFull
	}
	return c.AssignVehicle(ctx, free[0].ID, vehicleNumber)
}

// EntryForm is the vehicle-number input of the entry view. Its value
// survives a failed submit and is cleared by a successful one.
type EntryForm struct {
	entry *EntryController

	mu            sync.Mutex
	vehicleNumber string
}

func NewEntryForm(entry *EntryController) *EntryForm {
	return &EntryForm{entry: entry}
}

func (f *EntryForm) SetVehicleNumber(vehicleNumber string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicleNumber = NormalizePlate(vehicleNumber)
}

func (f *EntryForm) VehicleNumber() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicleNumber
}

func (f *EntryForm) Valid() bool {
	return ValidPlate(f.VehicleNumber())
}

func (f *EntryForm) Submit(ctx context.Context, slotID int) (Slot, error) {
	vehicleNumber := f.VehicleNumber()

	slot, err := f.entry.AssignVehicle(ctx, slotID, vehicleNumber)
	if err != nil {
		return Slot{}, err
	}

	f.mu.Lock()
	if f.vehicleNumber == vehicleNumber {
		f.vehicleNumber = ""
	}
	f.mu.Unlock()
	return slot, nil
}
