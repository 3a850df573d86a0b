package parking

import (
	"context"
	"sync"
	"time"
)

type occupyCall struct {
	slotID        int
	vehicleNumber string
	entryTime     time.Time
}

// fakeStore is an in-package SlotStore that records calls.
type fakeStore struct {
	mu    sync.Mutex
	slots []Slot

	listErr    error
	occupyErr  error
	releaseErr error

	// occupyStarted/occupyUnblock let a test hold an Occupy call open.
	occupyStarted chan struct{}
	occupyUnblock chan struct{}

	// listTaken/listUnblock hold the next ListSlots open after it has read
	// the slots, so its result is stale by the time it returns.
	listTaken   chan struct{}
	listUnblock chan struct{}

	listCalls    int
	occupyCalls  []occupyCall
	releaseCalls []int
}

func newFakeStore(slots ...Slot) *fakeStore {
	return &fakeStore{slots: slots}
}

func (f *fakeStore) ListSlots(ctx context.Context) ([]Slot, error) {
	f.mu.Lock()
	f.listCalls++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	slots := append([]Slot(nil), f.slots...)
	taken, unblock := f.listTaken, f.listUnblock
	f.listTaken, f.listUnblock = nil, nil
	f.mu.Unlock()

	if taken != nil {
		close(taken)
		<-unblock
	}
	return slots, nil
}

func (f *fakeStore) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (Slot, error) {
	f.mu.Lock()
	f.occupyCalls = append(f.occupyCalls, occupyCall{slotID, vehicleNumber, entryTime})
	started, unblock := f.occupyStarted, f.occupyUnblock
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-unblock
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.occupyErr != nil {
		return Slot{}, f.occupyErr
	}
	for i, slot := range f.slots {
		if slot.ID != slotID {
			continue
		}
		if slot.Occupied() {
			return Slot{}, ErrSlotAlreadyOccupied
		}
		f.slots[i] = slot.Park(vehicleNumber, entryTime)
		return f.slots[i], nil
	}
	return Slot{}, ErrSlotNotFound
}

func (f *fakeStore) Release(ctx context.Context, slotID int) (Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls = append(f.releaseCalls, slotID)
	if f.releaseErr != nil {
		return Slot{}, f.releaseErr
	}
	for i, slot := range f.slots {
		if slot.ID != slotID {
			continue
		}
		if !slot.Occupied() {
			return Slot{}, ErrSlotNotOccupied
		}
		f.slots[i] = slot.Leave()
		return f.slots[i], nil
	}
	return Slot{}, ErrSlotNotFound
}

func (f *fakeStore) occupyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.occupyCalls)
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
