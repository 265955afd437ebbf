package model

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation is a time-bounded hold of Quantity units against one resource
// key. A multi-item reserve call writes one row per key, correlated by a
// shared GroupID; the group id is the reservation handle callers see.
type Reservation struct {
	ID        string            `json:"id" bson:"_id"`
	GroupID   string            `json:"group_id" bson:"group_id"`
	Key       string            `json:"resource_key" bson:"resource_key"`
	Quantity  int64             `json:"quantity" bson:"quantity"`
	HolderID  string            `json:"holder_id" bson:"holder_id"`
	Status    ReservationStatus `json:"status" bson:"status"`
	ExpiresAt time.Time         `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

func NewReservation(groupID string, key ResourceKey, quantity int64, holderID string, now, expiresAt time.Time) *Reservation {
	return &Reservation{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Key:       key.String(),
		Quantity:  quantity,
		HolderID:  holderID,
		Status:    ReservationActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
}

func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpired reports whether an ACTIVE reservation has passed its expiry,
// even if the sweeper has not stamped it EXPIRED yet.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationActive && !r.ExpiresAt.After(now)
}

// IsTerminal reports whether the reservation reached a final status.
// Terminal reservations are immutable.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationConfirmed, ReservationReleased, ReservationExpired:
		return true
	}
	return false
}
