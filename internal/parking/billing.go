package parking

import "time"

const DefaultRatePerHour = 50

type Biller struct {
	ratePerHour int
	clock       Clock
}

func NewBiller(ratePerHour int, clock Clock) *Biller {
	if ratePerHour <= 0 {
		ratePerHour = DefaultRatePerHour
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Biller{
		ratePerHour: ratePerHour,
		clock:       clock,
	}
}

func (b *Biller) RatePerHour() int {
	return b.ratePerHour
}

// Hours is the number of started hours since entryTime, never less than one.
// A zero entryTime bills a single hour.
func (b *Biller) Hours(entryTime time.Time) int {
	return b.HoursAt(entryTime, b.clock.Now())
}

// HoursAt is Hours measured up to exitTime instead of the clock.
func (b *Biller) HoursAt(entryTime, exitTime time.Time) int {
	if entryTime.IsZero() {
		return 1
	}

	elapsed := exitTime.Sub(entryTime)
	hours := int(elapsed / time.Hour)
	if elapsed%time.Hour > 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

func (b *Biller) Bill(entryTime time.Time) int {
	return b.Hours(entryTime) * b.ratePerHour
}
