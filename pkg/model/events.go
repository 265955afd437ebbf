package model

import "time"

// Event types emitted on inventory state changes.
const (
	EventStockReserved        = "StockReserved"
	EventReservationReleased  = "ReservationReleased"
	EventReservationConfirmed = "ReservationConfirmed"
	EventReservationExpired   = "ReservationExpired"
	EventStockAdjusted        = "StockAdjusted"
)

type StockEventLine struct {
	ResourceKey string `json:"resource_key"`
	Quantity    int64  `json:"quantity"`
}

// StockEvent notifies downstream services (catalog, search, order workflows)
// of an inventory state change. Events are informational; the ledger remains
// the single source of truth.
type StockEvent struct {
	Type        string           `json:"type"`
	GroupID     string           `json:"group_id,omitempty"`
	HolderID    string           `json:"holder_id,omitempty"`
	ResourceKey string           `json:"resource_key,omitempty"`
	Lines       []StockEventLine `json:"lines,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// PartitionKey groups events of one reservation (or one resource) onto the
// same partition so consumers observe them in order.
func (e StockEvent) PartitionKey() string {
	if e.GroupID != "" {
		return e.GroupID
	}
	return e.ResourceKey
}
