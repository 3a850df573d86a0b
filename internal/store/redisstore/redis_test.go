package redisstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-occupancy/internal/parking"
)

func TestDecodeSlot(t *testing.T) {
	entry := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fields   map[string]string
		occupied bool
		vehicle  string
		wantErr  bool
	}{
		{
			name:   "free slot",
			fields: map[string]string{fieldNumber: "A1", fieldOccupied: "0"},
		},
		{
			name: "occupied slot",
			fields: map[string]string{
				fieldNumber:   "A1",
				fieldOccupied: "1",
				fieldVehicle:  "KA05MH1234",
				fieldEntry:    entry.Format(time.RFC3339Nano),
			},
			occupied: true,
			vehicle:  "KA05MH1234",
		},
		{
			name:     "occupied without entry time",
			fields:   map[string]string{fieldNumber: "A1", fieldOccupied: "1", fieldVehicle: "KA05MH1234"},
			occupied: true,
			vehicle:  "KA05MH1234",
		},
		{
			name:    "missing label",
			fields:  map[string]string{fieldOccupied: "0"},
			wantErr: true,
		},
		{
			name:    "bad entry time",
			fields:  map[string]string{fieldNumber: "A1", fieldOccupied: "1", fieldEntry: "yesterday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := decodeSlot(4, tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4, slot.ID)
			assert.Equal(t, "A1", slot.Number)
			assert.Equal(t, tt.occupied, slot.Occupied())
			assert.Equal(t, tt.vehicle, slot.VehicleNumber())
		})
	}
}

func TestTransitionError(t *testing.T) {
	assert.NoError(t, transitionError(1, parking.ErrSlotNotOccupied))
	assert.ErrorIs(t, transitionError(0, parking.ErrSlotNotOccupied), parking.ErrSlotNotFound)
	assert.ErrorIs(t, transitionError(-1, parking.ErrSlotNotOccupied), parking.ErrSlotNotOccupied)
	assert.ErrorIs(t, transitionError(7, parking.ErrSlotNotOccupied), parking.ErrStoreUnavailable)
}

func TestKeys(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, "parking:slots", s.indexKey())
	assert.Equal(t, "parking:slot:12", s.slotKey(12))
}
