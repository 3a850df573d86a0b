package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/store/httpstore"
	"parking-occupancy/internal/store/memory"
)

func TestOpenMemorySeedsSlots(t *testing.T) {
	cfg := &config.Config{StoreDriver: DriverMemory, SlotCount: 12, SlotRowWidth: 10}

	s, closeStore, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()

	require.IsType(t, &memory.Store{}, s)
	slots, err := s.ListSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, slots, 12)
	assert.Equal(t, "B2", slots[11].Number)
}

func TestOpenHTTP(t *testing.T) {
	cfg := &config.Config{StoreDriver: DriverHTTP, StoreURL: "http://localhost:3000"}

	s, closeStore, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &httpstore.Client{}, s)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, closeStore, err := Open(context.Background(), &config.Config{StoreDriver: "mongo"})
	assert.Error(t, err)
	assert.NotNil(t, closeStore)
}
