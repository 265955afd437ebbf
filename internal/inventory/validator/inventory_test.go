package validator

import (
	"testing"
	"time"

	"stockpile/pkg/logger"
	"stockpile/pkg/model"
)

func newTestValidator() *InventoryValidator {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return NewInventoryValidator(log, 3, 5)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestValidateReserve(t *testing.T) {
	v := newTestValidator()
	checkIn := timePtr(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	checkOut := timePtr(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		req     *model.ReserveRequest
		wantErr bool
	}{
		{
			name: "valid product item",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{ProductID: "P1", Quantity: 1},
			}},
		},
		{
			name: "valid stay item",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{PropertyID: "H1", RoomTypeID: "deluxe", CheckIn: checkIn, CheckOut: checkOut, Quantity: 2},
			}},
		},
		{
			name:    "missing holder",
			req:     &model.ReserveRequest{Items: []model.ReserveItem{{ProductID: "P1", Quantity: 1}}},
			wantErr: true,
		},
		{
			name:    "no items",
			req:     &model.ReserveRequest{HolderID: "h"},
			wantErr: true,
		},
		{
			name: "zero quantity",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{ProductID: "P1", Quantity: 0},
			}},
			wantErr: true,
		},
		{
			name: "negative ttl",
			req: &model.ReserveRequest{HolderID: "h", TTLSeconds: -1, Items: []model.ReserveItem{
				{ProductID: "P1", Quantity: 1},
			}},
			wantErr: true,
		},
		{
			name: "product and room type on one item",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{ProductID: "P1", PropertyID: "H1", RoomTypeID: "deluxe", CheckIn: checkIn, CheckOut: checkOut, Quantity: 1},
			}},
			wantErr: true,
		},
		{
			name: "room type without dates",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{PropertyID: "H1", RoomTypeID: "deluxe", Quantity: 1},
			}},
			wantErr: true,
		},
		{
			name: "check-out not after check-in",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{PropertyID: "H1", RoomTypeID: "deluxe", CheckIn: checkIn, CheckOut: checkIn, Quantity: 1},
			}},
			wantErr: true,
		},
		{
			name: "same-day check-out later in the day",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{
					PropertyID: "H1",
					RoomTypeID: "deluxe",
					CheckIn:    timePtr(time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)),
					CheckOut:   timePtr(time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC)),
					Quantity:   1,
				},
			}},
			wantErr: true,
		},
		{
			name: "stay longer than the night cap",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{
					PropertyID: "H1",
					RoomTypeID: "deluxe",
					CheckIn:    checkIn,
					CheckOut:   timePtr(checkIn.AddDate(0, 0, 6)),
					Quantity:   1,
				},
			}},
			wantErr: true,
		},
		{
			name: "batch over the item cap",
			req: &model.ReserveRequest{HolderID: "h", Items: []model.ReserveItem{
				{ProductID: "P1", Quantity: 1},
				{ProductID: "P2", Quantity: 1},
				{ProductID: "P3", Quantity: 1},
				{ProductID: "P4", Quantity: 1},
			}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateReserve(tc.req)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateUpsertCapacity(t *testing.T) {
	v := newTestValidator()
	night := timePtr(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		req     *model.UpsertCapacityRequest
		wantErr bool
	}{
		{
			name: "product",
			req:  &model.UpsertCapacityRequest{ProductID: "P1", TotalCapacity: 10, TrackCapacity: true},
		},
		{
			name: "room type template",
			req:  &model.UpsertCapacityRequest{PropertyID: "H1", RoomTypeID: "deluxe", TotalCapacity: 5, TrackCapacity: true},
		},
		{
			name: "single night",
			req:  &model.UpsertCapacityRequest{PropertyID: "H1", RoomTypeID: "deluxe", Night: night, TotalCapacity: 2, TrackCapacity: true},
		},
		{
			name:    "no target",
			req:     &model.UpsertCapacityRequest{TotalCapacity: 10},
			wantErr: true,
		},
		{
			name:    "night without room type",
			req:     &model.UpsertCapacityRequest{ProductID: "P1", Night: night, TotalCapacity: 10},
			wantErr: true,
		},
		{
			name:    "negative capacity",
			req:     &model.UpsertCapacityRequest{ProductID: "P1", TotalCapacity: -1},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateUpsertCapacity(tc.req)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAdjustStock(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     *model.AdjustStockRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  &model.AdjustStockRequest{ResourceKey: "product:P1", NewTotal: 5},
		},
		{
			name: "zero total allowed",
			req:  &model.AdjustStockRequest{ResourceKey: "product:P1", NewTotal: 0},
		},
		{
			name:    "missing key",
			req:     &model.AdjustStockRequest{NewTotal: 5},
			wantErr: true,
		},
		{
			name:    "malformed key",
			req:     &model.AdjustStockRequest{ResourceKey: "banana", NewTotal: 5},
			wantErr: true,
		},
		{
			name:    "negative total",
			req:     &model.AdjustStockRequest{ResourceKey: "product:P1", NewTotal: -1},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateAdjustStock(tc.req)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
