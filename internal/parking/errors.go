package parking

import "errors"

var (
	ErrInvalidPlate        = errors.New("vehicle number does not match plate format")
	ErrStoreUnavailable    = errors.New("slot store unavailable")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotAlreadyOccupied = errors.New("slot already occupied")
	ErrSlotNotOccupied     = errors.New("slot is not occupied")
	ErrOperationInFlight   = errors.New("another operation on this slot is in progress")
	ErrUnknownSlot         = errors.New("slot is not in the current snapshot")
	ErrLotFull             = errors.New("parking lot is full")
)
