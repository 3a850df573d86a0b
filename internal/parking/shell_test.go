package parking

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runShell(t *testing.T, store *fakeStore, script string) string {
	t.Helper()
	cache := NewSnapshotCache(store)
	clock := fixedClock(testNow)
	guard := NewSlotGuard()
	entry := NewEntryController(store, cache, guard, nil, clock)
	exit := NewExitController(store, cache, guard, nil, NewBiller(50, clock), clock)
	view := NewOccupiedView(cache, 5)

	var out bytes.Buffer
	shell := NewShell(cache, entry, exit, view, NewNoopTelemetryProvider(), strings.NewReader(script), &out)
	shell.Run(context.Background())
	return out.String()
}

func TestShellEntryAndExit(t *testing.T) {
	store := newFakeStore(
		NewSlot(1, "A1"),
		NewSlot(2, "A2").Park("KA01AB1111", testNow.Add(-90*time.Minute)),
	)

	out := runShell(t, store, strings.Join([]string{
		"refresh",
		"free",
		"assign 1 KA05MH1234",
		"free",
		"bill 2",
		"exit 2",
		"occupied",
	}, "\n"))

	assert.Contains(t, out, "Loaded 2 slots")
	assert.Contains(t, out, "Free slots: 1:A1")
	assert.Contains(t, out, "Allocated slot A1 to KA05MH1234")
	assert.Contains(t, out, "Sorry, parking lot is full")
	assert.Contains(t, out, "Slot A2: 2 hour(s), bill 100")
	assert.Contains(t, out, "Vehicle KA01AB1111 exited from A2. Bill: ₹100")
	assert.Contains(t, out, "Page 1 of 1")
}

func TestShellInvalidPlateKeepsForm(t *testing.T) {
	store := newFakeStore(NewSlot(1, "A1"))

	out := runShell(t, store, "refresh\nplate ka05\nassign 1\nplate KA05MH1234\nassign 1\n")

	assert.Contains(t, out, "Invalid vehicle number")
	assert.Contains(t, out, "Allocated slot A1 to KA05MH1234")
	require.Len(t, store.occupyCalls, 1)
}

func TestShellPagination(t *testing.T) {
	store := newFakeStore(occupiedLot(7)...)

	out := runShell(t, store, "refresh\npage 3\nnext\nprev\nsearch A7\noccupied\nfoo\n")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "Page out of range")
	assert.Contains(t, lines, "Page 2 of 2")
	assert.Contains(t, lines, "Page 1 of 2")
	assert.Contains(t, lines, "1 matching slots")
	assert.Contains(t, out, "KA01AB0007")
	assert.Contains(t, lines, "Unknown command: foo")
}

func TestShellUsageErrors(t *testing.T) {
	out := runShell(t, newFakeStore(), "assign\nexit x\nbill\npage\nslots\n")

	assert.Contains(t, out, "Usage: assign <slot_id> [vehicle_number]")
	assert.Contains(t, out, "Invalid slot id")
	assert.Contains(t, out, "Usage: bill <slot_id>")
	assert.Contains(t, out, "Usage: page <n>")
	assert.Contains(t, out, "No slots loaded")
}
