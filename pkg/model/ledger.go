package model

import (
	"errors"
	"time"
)

// ErrNonPositiveQuantity rejects availability checks for zero or negative
// quantities; they are caller bugs, not "always available" requests.
var ErrNonPositiveQuantity = errors.New("requested quantity must be positive")

// Ledger is the durable capacity record for one resource key. ReservedCapacity
// is the authoritative total held by active reservations plus confirmed sales;
// reservation rows are the itemized breakdown.
type Ledger struct {
	Key              string    `json:"resource_key" bson:"_id"`
	TotalCapacity    int64     `json:"total_capacity" bson:"total_capacity"`
	ReservedCapacity int64     `json:"reserved_capacity" bson:"reserved_capacity"`
	TrackCapacity    bool      `json:"track_capacity" bson:"track_capacity"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

// Available returns total minus reserved. The value can go negative after a
// downward stock adjustment; oversold state is surfaced, never clamped.
func (l *Ledger) Available() int64 {
	return l.TotalCapacity - l.ReservedCapacity
}

// AvailableQuantity returns the sellable quantity and whether the pool is
// unlimited (capacity tracking disabled).
func (l *Ledger) AvailableQuantity() (int64, bool) {
	if !l.TrackCapacity {
		return 0, true
	}
	return l.Available(), false
}

// CheckAvailability reports whether the ledger can satisfy the requested
// quantity. Untracked pools always can.
func (l *Ledger) CheckAvailability(requested int64) (bool, error) {
	if requested <= 0 {
		return false, ErrNonPositiveQuantity
	}
	if !l.TrackCapacity {
		return true, nil
	}
	return requested <= l.Available(), nil
}

func (l *Ledger) Oversold() bool {
	return l.TrackCapacity && l.ReservedCapacity > l.TotalCapacity
}
