package model

import (
	"fmt"
	"strings"
	"time"
)

// NightFormat is the canonical date layout for night-scoped resource keys.
const NightFormat = "2006-01-02"

type KeyKind string

const (
	KeyKindProduct  KeyKind = "product"
	KeyKindRoomType KeyKind = "roomtype"
	KeyKindNight    KeyKind = "night"
)

// ResourceKey identifies a reservable capacity pool: a flat product, a single
// night of a property's room type, or the room type itself. Room-type keys
// hold no sellable capacity directly; they are the template night ledgers are
// lazily created from the first time a date is touched. The canonical String
// form is used as the ledger document id.
type ResourceKey struct {
	Kind       KeyKind `json:"kind"`
	ProductID  string  `json:"product_id,omitempty"`
	PropertyID string  `json:"property_id,omitempty"`
	RoomTypeID string  `json:"room_type_id,omitempty"`
	Night      string  `json:"night,omitempty"`
}

func ProductKey(productID string) ResourceKey {
	return ResourceKey{
		Kind:      KeyKindProduct,
		ProductID: productID,
	}
}

func RoomTypeKey(propertyID, roomTypeID string) ResourceKey {
	return ResourceKey{
		Kind:       KeyKindRoomType,
		PropertyID: propertyID,
		RoomTypeID: roomTypeID,
	}
}

func NightKey(propertyID, roomTypeID string, night time.Time) ResourceKey {
	return ResourceKey{
		Kind:       KeyKindNight,
		PropertyID: propertyID,
		RoomTypeID: roomTypeID,
		Night:      night.UTC().Format(NightFormat),
	}
}

// NightKeysForStay expands a stay range into one key per night in
// [checkIn, checkOut). Dates are truncated to whole days in UTC.
func NightKeysForStay(propertyID, roomTypeID string, checkIn, checkOut time.Time) []ResourceKey {
	start := checkIn.UTC().Truncate(24 * time.Hour)
	end := checkOut.UTC().Truncate(24 * time.Hour)

	var keys []ResourceKey
	for night := start; night.Before(end); night = night.AddDate(0, 0, 1) {
		keys = append(keys, NightKey(propertyID, roomTypeID, night))
	}
	return keys
}

func (k ResourceKey) IsZero() bool {
	return k.Kind == ""
}

func (k ResourceKey) String() string {
	switch k.Kind {
	case KeyKindNight:
		return fmt.Sprintf("night:%s:%s:%s", k.PropertyID, k.RoomTypeID, k.Night)
	case KeyKindRoomType:
		return fmt.Sprintf("roomtype:%s:%s", k.PropertyID, k.RoomTypeID)
	default:
		return fmt.Sprintf("product:%s", k.ProductID)
	}
}

// TemplateKey returns the room-type key a night key was derived from.
func (k ResourceKey) TemplateKey() ResourceKey {
	return RoomTypeKey(k.PropertyID, k.RoomTypeID)
}

// ParseResourceKey reverses String. Unknown formats are rejected so a
// malformed key never silently resolves to an empty product pool.
func ParseResourceKey(s string) (ResourceKey, error) {
	switch {
	case strings.HasPrefix(s, "product:"):
		id := strings.TrimPrefix(s, "product:")
		if id == "" {
			return ResourceKey{}, fmt.Errorf("resource key %q has empty product id", s)
		}
		return ProductKey(id), nil
	case strings.HasPrefix(s, "roomtype:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "roomtype:"), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return ResourceKey{}, fmt.Errorf("resource key %q is not a valid room type key", s)
		}
		return RoomTypeKey(parts[0], parts[1]), nil
	case strings.HasPrefix(s, "night:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "night:"), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return ResourceKey{}, fmt.Errorf("resource key %q is not a valid night key", s)
		}
		if _, err := time.Parse(NightFormat, parts[2]); err != nil {
			return ResourceKey{}, fmt.Errorf("resource key %q has invalid night date: %w", s, err)
		}
		return ResourceKey{
			Kind:       KeyKindNight,
			PropertyID: parts[0],
			RoomTypeID: parts[1],
			Night:      parts[2],
		}, nil
	default:
		return ResourceKey{}, fmt.Errorf("unrecognized resource key %q", s)
	}
}
