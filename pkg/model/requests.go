package model

import (
	"time"
)

// ReserveItem is one line of a reserve request. A line either names a flat
// product or a room type with a stay range; the validator enforces that
// exactly one shape is present.
type ReserveItem struct {
	ProductID  string     `json:"product_id,omitempty" validate:"required_without=RoomTypeID"`
	PropertyID string     `json:"property_id,omitempty" validate:"required_with=RoomTypeID"`
	RoomTypeID string     `json:"room_type_id,omitempty" validate:"required_with=PropertyID,excluded_with=ProductID"`
	CheckIn    *time.Time `json:"check_in,omitempty" validate:"required_with=RoomTypeID"`
	CheckOut   *time.Time `json:"check_out,omitempty" validate:"required_with=RoomTypeID"`
	Quantity   int64      `json:"quantity" validate:"required,gt=0"`
}

// Keys resolves the item to the ledger keys it holds capacity against:
// a single product key, or one key per night of the stay.
func (it ReserveItem) Keys() []ResourceKey {
	if it.RoomTypeID == "" {
		return []ResourceKey{ProductKey(it.ProductID)}
	}
	if it.CheckIn == nil || it.CheckOut == nil {
		return nil
	}
	return NightKeysForStay(it.PropertyID, it.RoomTypeID, *it.CheckIn, *it.CheckOut)
}

type ReserveRequest struct {
	HolderID   string        `json:"holder_id" validate:"required"`
	TTLSeconds int64         `json:"ttl_seconds,omitempty" validate:"omitempty,gt=0"`
	Items      []ReserveItem `json:"items" validate:"required,min=1,dive"`
}

// ReserveFailure names one key that fell short and by how much.
type ReserveFailure struct {
	ResourceKey string `json:"resource_key"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
	Reason      string `json:"reason"`
}

// ReserveResult reports the outcome of a batch reserve. Success means every
// item committed under ReservationID. On failure, Failures enumerates the
// shortfalls; ReservationID still names any partially committed holds, which
// the caller is expected to reverse with a compensating release.
type ReserveResult struct {
	Success       bool             `json:"success"`
	ReservationID string           `json:"reservation_id,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at,omitempty"`
	Failures      []ReserveFailure `json:"failures,omitempty"`
}

// UpsertCapacityRequest provisions capacity for a product, a single night,
// or a room type template. A room-type request without a night sets the
// template that per-night ledgers are lazily created from.
type UpsertCapacityRequest struct {
	ProductID     string     `json:"product_id,omitempty" validate:"required_without=RoomTypeID"`
	PropertyID    string     `json:"property_id,omitempty" validate:"required_with=RoomTypeID"`
	RoomTypeID    string     `json:"room_type_id,omitempty" validate:"required_with=PropertyID,excluded_with=ProductID"`
	Night         *time.Time `json:"night,omitempty" validate:"excluded_without=RoomTypeID"`
	TotalCapacity int64      `json:"total_capacity" validate:"gte=0"`
	TrackCapacity bool       `json:"track_capacity"`
}

func (r UpsertCapacityRequest) Key() ResourceKey {
	if r.RoomTypeID == "" {
		return ProductKey(r.ProductID)
	}
	if r.Night == nil {
		return RoomTypeKey(r.PropertyID, r.RoomTypeID)
	}
	return NightKey(r.PropertyID, r.RoomTypeID, *r.Night)
}

type AdjustStockRequest struct {
	ResourceKey string `json:"resource_key" validate:"required"`
	NewTotal    int64  `json:"new_total" validate:"gte=0"`
}

// StockStatus is the read-only aggregate for one resource key.
type StockStatus struct {
	ResourceKey       string `json:"resource_key"`
	TotalQuantity     int64  `json:"total_quantity"`
	ReservedQuantity  int64  `json:"reserved_quantity"`
	AvailableQuantity int64  `json:"available_quantity"`
	TrackQuantity     bool   `json:"track_quantity"`
	Unlimited         bool   `json:"unlimited,omitempty"`
	Oversold          bool   `json:"oversold,omitempty"`
}

type SweepResult struct {
	ReleasedCount int `json:"released_count"`
}
