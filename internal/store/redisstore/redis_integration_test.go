//go:build integration

package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-occupancy/internal/parking"
)

func TestRedisLifecycle(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	client, err := NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	prefix := "test-" + uuid.NewString()
	s := New(client, prefix)
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	require.NoError(t, s.Seed(ctx, parking.SlotLabels(3, 10)))
	require.NoError(t, s.Seed(ctx, parking.SlotLabels(3, 10)))

	slots, err := s.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"A1", "A2", "A3"}, []string{slots[0].Number, slots[1].Number, slots[2].Number})

	entry := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	slot, err := s.Occupy(ctx, 2, "KA05MH1234", entry)
	require.NoError(t, err)
	assert.True(t, entry.Equal(slot.EntryTime()))

	_, err = s.Occupy(ctx, 2, "KA05MH9999", entry)
	assert.ErrorIs(t, err, parking.ErrSlotAlreadyOccupied)
	_, err = s.Occupy(ctx, 9, "KA05MH9999", entry)
	assert.ErrorIs(t, err, parking.ErrSlotNotFound)

	slot, err = s.Release(ctx, 2)
	require.NoError(t, err)
	assert.False(t, slot.Occupied())

	_, err = s.Release(ctx, 2)
	assert.ErrorIs(t, err, parking.ErrSlotNotOccupied)
}
