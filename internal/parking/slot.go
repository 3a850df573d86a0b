package parking

import (
	"encoding/json"
	"fmt"
	"time"
)

// Occupant is the vehicle currently holding a slot. A slot with a nil
// Occupant is free; there is no way to carry a vehicle number on a free slot.
type Occupant struct {
	VehicleNumber string
	// EntryTime is zero only for malformed store records.
	EntryTime time.Time
}

type Slot struct {
	ID       int
	Number   string
	Occupant *Occupant
}

func NewSlot(id int, number string) Slot {
	return Slot{
		ID:     id,
		Number: number,
	}
}

func (s Slot) Occupied() bool {
	return s.Occupant != nil
}

func (s Slot) VehicleNumber() string {
	if s.Occupant == nil {
		return ""
	}
	return s.Occupant.VehicleNumber
}

func (s Slot) EntryTime() time.Time {
	if s.Occupant == nil {
		return time.Time{}
	}
	return s.Occupant.EntryTime
}

// Park returns a copy of s held by vehicleNumber since entryTime.
func (s Slot) Park(vehicleNumber string, entryTime time.Time) Slot {
	s.Occupant = &Occupant{
		VehicleNumber: vehicleNumber,
		EntryTime:     entryTime,
	}
	return s
}

// Leave returns a free copy of s.
func (s Slot) Leave() Slot {
	s.Occupant = nil
	return s
}

type slotJSON struct {
	ID            int    `json:"id"`
	SlotNumber    string `json:"slotNumber"`
	Occupied      bool   `json:"occupied"`
	VehicleNumber string `json:"vehicleNumber,omitempty"`
	EntryTime     string `json:"entryTime,omitempty"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	out := slotJSON{
		ID:         s.ID,
		SlotNumber: s.Number,
		Occupied:   s.Occupied(),
	}
	if s.Occupant != nil {
		out.VehicleNumber = s.Occupant.VehicleNumber
		if !s.Occupant.EntryTime.IsZero() {
			out.EntryTime = s.Occupant.EntryTime.UTC().Format(time.RFC3339Nano)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat collection shape. Vehicle fields on a record
// that is not occupied are dropped.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var in struct {
		ID            int     `json:"id"`
		SlotNumber    string  `json:"slotNumber"`
		Occupied      bool    `json:"occupied"`
		VehicleNumber *string `json:"vehicleNumber"`
		EntryTime     *string `json:"entryTime"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*s = NewSlot(in.ID, in.SlotNumber)
	if !in.Occupied {
		return nil
	}

	var vehicle string
	if in.VehicleNumber != nil {
		vehicle = *in.VehicleNumber
	}
	var entry time.Time
	if in.EntryTime != nil && *in.EntryTime != "" {
		t, err := time.Parse(time.RFC3339Nano, *in.EntryTime)
		if err != nil {
			return fmt.Errorf("slot %d: invalid entryTime: %w", in.ID, err)
		}
		entry = t
	}
	*s = s.Park(vehicle, entry)
	return nil
}

// SlotLabels builds row-major labels: A1..A<rowWidth>, B1, ...
func SlotLabels(count, rowWidth int) []string {
	if rowWidth <= 0 {
		rowWidth = count
	}
	labels := make([]string, 0, count)
	for i := 0; i < count; i++ {
		row := i / rowWidth
		labels = append(labels, fmt.Sprintf("%s%d", rowName(row), i%rowWidth+1))
	}
	return labels
}

func rowName(row int) string {
	name := ""
	for {
		name = string(rune('A'+row%26)) + name
		row = row/26 - 1
		if row < 0 {
			return name
		}
	}
}
