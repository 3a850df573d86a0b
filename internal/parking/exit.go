package parking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parking-occupancy/internal/logging"
)

type Receipt struct {
	SlotID        int       `json:"slot_id"`
	SlotNumber    string    `json:"slot_number"`
	VehicleNumber string    `json:"vehicle_number"`
	EntryTime     time.Time `json:"entry_time,omitzero"`
	ExitTime      time.Time `json:"exit_time"`
	Hours         int       `json:"hours"`
	Amount        int       `json:"amount"`
}

func (r Receipt) Message() string {
	return fmt.Sprintf("Vehicle %s exited from %s. Bill: ₹%d", r.VehicleNumber, r.SlotNumber, r.Amount)
}

type ExitController struct {
	store    SlotStore
	cache    *SnapshotCache
	guard    *SlotGuard
	notifier Notifier
	biller   *Biller
	clock    Clock

	mu   sync.Mutex
	last *Receipt
}

func NewExitController(store SlotStore, cache *SnapshotCache, guard *SlotGuard, notifier Notifier, biller *Biller, clock Clock) *ExitController {
	if guard == nil {
		guard = NewSlotGuard()
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if clock == nil {
		clock = SystemClock
	}
	if biller == nil {
		biller = NewBiller(DefaultRatePerHour, clock)
	}
	return &ExitController{
		store:    store,
		cache:    cache,
		guard:    guard,
		notifier: notifier,
		biller:   biller,
		clock:    clock,
	}
}

func (c *ExitController) Biller() *Biller {
	return c.biller
}

func (c *ExitController) OccupiedSlots() []Slot {
	return OccupiedSlots(c.cache.Current())
}

// Quote prices an occupied slot as if it left now.
func (c *ExitController) Quote(slotID int) (Receipt, error) {
	slot, ok := c.cache.Find(slotID)
	if !ok {
		return Receipt{}, ErrUnknownSlot
	}
	if !slot.Occupied() {
		return Receipt{}, ErrSlotNotOccupied
	}
	return c.receipt(slot), nil
}

// Exit releases slotID and bills its occupant. A slot missing from the
// snapshot is ignored without contacting the store.
func (c *ExitController) Exit(ctx context.Context, slotID int) (Receipt, error) {
	slot, ok := c.cache.Find(slotID)
	if !ok {
		logging.Debug(ctx).Int("slot_id", slotID).Msg("exit ignored for unknown slot")
		return Receipt{}, ErrUnknownSlot
	}

	if !c.guard.Acquire(slotID) {
		return Receipt{}, fmt.Errorf("exit slot %d: %w", slotID, ErrOperationInFlight)
	}
	defer c.guard.Release(slotID)

	// Priced before release: the store clears the entry time.
	receipt := c.receipt(slot)

	if _, err := c.store.Release(ctx, slotID); err != nil {
		logging.Warn(ctx).Err(err).Int("slot_id", slotID).Msg("exit rejected")
		return Receipt{}, fmt.Errorf("exit slot %d: %w", slotID, err)
	}

	if err := c.cache.Refresh(ctx); err != nil {
		logging.Warn(ctx).Err(err).Int("slot_id", slotID).Msg("snapshot refresh after exit failed")
	}

	c.mu.Lock()
	c.last = &receipt
	c.mu.Unlock()

	logging.Info(ctx).
		Int("slot_id", slotID).
		Str("vehicle_number", receipt.VehicleNumber).
		Int("amount", receipt.Amount).
		Msg("vehicle exited")
	c.notifier.Notify(ctx, receipt.Message())
	return receipt, nil
}

func (c *ExitController) LastReceipt() (Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Receipt{}, false
	}
	return *c.last, true
}

func (c *ExitController) receipt(slot Slot) Receipt {
	entry := slot.EntryTime()
	now := c.clock.Now()
	hours := c.biller.HoursAt(entry, now)
	return Receipt{
		SlotID:        slot.ID,
		SlotNumber:    slot.Number,
		VehicleNumber: slot.VehicleNumber(),
		EntryTime:     entry,
		ExitTime:      now,
		Hours:         hours,
		Amount:        hours * c.biller.RatePerHour(),
	}
}
