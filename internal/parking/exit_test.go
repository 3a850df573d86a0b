package parking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExitFixture(t *testing.T, slots ...Slot) (*ExitController, *fakeStore, *SnapshotCache, *recordingNotifier) {
	t.Helper()
	store := newFakeStore(slots...)
	cache := NewSnapshotCache(store)
	require.NoError(t, cache.Refresh(context.Background()))
	notifier := &recordingNotifier{}
	clock := fixedClock(testNow)
	exit := NewExitController(store, cache, NewSlotGuard(), notifier, NewBiller(50, clock), clock)
	return exit, store, cache, notifier
}

func TestExitBillsNinetyMinutesAsTwoHours(t *testing.T) {
	exit, store, cache, notifier := newExitFixture(t,
		NewSlot(1, "A1"),
		NewSlot(2, "A2").Park("KA01AB1111", testNow.Add(-90*time.Minute)),
	)

	receipt, err := exit.Exit(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 100, receipt.Amount)
	assert.Equal(t, 2, receipt.Hours)
	assert.Equal(t, "KA01AB1111", receipt.VehicleNumber)
	assert.Equal(t, "A2", receipt.SlotNumber)
	assert.Equal(t, []int{2}, store.releaseCalls)

	slot, ok := cache.Find(2)
	require.True(t, ok)
	assert.False(t, slot.Occupied())
	assert.Empty(t, slot.VehicleNumber())
	assert.True(t, slot.EntryTime().IsZero())

	assert.Equal(t, []string{"Vehicle KA01AB1111 exited from A2. Bill: ₹100"}, notifier.all())

	last, ok := exit.LastReceipt()
	require.True(t, ok)
	assert.Equal(t, receipt, last)
}

func TestExitUnknownSlotIsNoOp(t *testing.T) {
	exit, store, _, notifier := newExitFixture(t, NewSlot(1, "A1"))

	_, err := exit.Exit(context.Background(), 5)

	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Empty(t, store.releaseCalls)
	assert.Empty(t, notifier.all())
	_, ok := exit.LastReceipt()
	assert.False(t, ok)
}

func TestExitStoreRejectionLeavesSnapshot(t *testing.T) {
	exit, store, cache, notifier := newExitFixture(t, NewSlot(1, "A1"))

	_, err := exit.Exit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSlotNotOccupied)

	store.releaseErr = ErrSlotNotFound
	_, err = exit.Exit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	assert.Equal(t, 1, store.listCalls)
	assert.Len(t, cache.Current(), 1)
	assert.Empty(t, notifier.all())
}

func TestExitMissingEntryTimeBillsOneHour(t *testing.T) {
	exit, _, _, _ := newExitFixture(t, NewSlot(3, "A3").Park("KA01AB1111", time.Time{}))

	receipt, err := exit.Exit(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 50, receipt.Amount)
}

func TestExitRejectedWhileSlotBusy(t *testing.T) {
	store := newFakeStore(NewSlot(1, "A1").Park("KA01AB1111", testNow))
	cache := NewSnapshotCache(store)
	require.NoError(t, cache.Refresh(context.Background()))
	guard := NewSlotGuard()
	exit := NewExitController(store, cache, guard, nil, nil, fixedClock(testNow))

	require.True(t, guard.Acquire(1))
	_, err := exit.Exit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrOperationInFlight)
	assert.Empty(t, store.releaseCalls)

	guard.Release(1)
	_, err = exit.Exit(context.Background(), 1)
	assert.NoError(t, err)
}

func TestExitSucceedsWhenRefreshFails(t *testing.T) {
	exit, store, _, notifier := newExitFixture(t, NewSlot(1, "A1").Park("KA01AB1111", testNow.Add(-10*time.Minute)))
	store.listErr = errors.New("down")

	receipt, err := exit.Exit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, receipt.Amount)
	assert.Len(t, notifier.all(), 1)
}

func TestQuote(t *testing.T) {
	exit, store, _, _ := newExitFixture(t,
		NewSlot(1, "A1"),
		NewSlot(2, "A2").Park("KA01AB1111", testNow.Add(-150*time.Minute)),
	)

	receipt, err := exit.Quote(2)
	require.NoError(t, err)
	assert.Equal(t, 150, receipt.Amount)
	assert.Empty(t, store.releaseCalls)

	_, err = exit.Quote(1)
	assert.ErrorIs(t, err, ErrSlotNotOccupied)

	_, err = exit.Quote(8)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestOccupiedSlots(t *testing.T) {
	exit, _, _, _ := newExitFixture(t,
		NewSlot(1, "A1"),
		NewSlot(2, "A2").Park("KA01AB1111", testNow),
	)

	occupied := exit.OccupiedSlots()
	require.Len(t, occupied, 1)
	assert.Equal(t, 2, occupied[0].ID)
}

func TestReceiptReadsClockOnce(t *testing.T) {
	// Each reading moves one second forward, across the one-hour boundary.
	var ticks time.Duration
	clock := ClockFunc(func() time.Time {
		now := testNow.Add(ticks)
		ticks += time.Second
		return now
	})

	store := newFakeStore(NewSlot(1, "A1").Park("KA01AB1111", testNow.Add(-time.Hour+time.Second)))
	cache := NewSnapshotCache(store)
	require.NoError(t, cache.Refresh(context.Background()))
	exit := NewExitController(store, cache, NewSlotGuard(), &recordingNotifier{}, NewBiller(50, clock), clock)

	quote, err := exit.Quote(1)
	require.NoError(t, err)

	assert.Equal(t, testNow, quote.ExitTime)
	assert.Equal(t, 1, quote.Hours)
	assert.Equal(t, quote.Hours*50, quote.Amount)
}
