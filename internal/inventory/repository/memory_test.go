package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	inverrors "stockpile/internal/inventory/errors"
	"stockpile/pkg/model"
)

func TestMemoryStore_ReserveCapacityConditional(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "product:P1", 10, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.ReserveCapacity(ctx, "product:P1", 7); err != nil {
		t.Fatalf("ReserveCapacity(7): %v", err)
	}
	if err := store.ReserveCapacity(ctx, "product:P1", 4); !errors.Is(err, inverrors.ErrInsufficientCapacity) {
		t.Fatalf("ReserveCapacity(4) over cap: expected insufficient capacity, got %v", err)
	}
	if err := store.ReserveCapacity(ctx, "product:P1", 3); err != nil {
		t.Fatalf("ReserveCapacity(3) exact fit: %v", err)
	}
	if err := store.ReserveCapacity(ctx, "product:missing", 1); !errors.Is(err, inverrors.ErrInsufficientCapacity) {
		t.Fatalf("ReserveCapacity on missing ledger: expected insufficient capacity, got %v", err)
	}
}

func TestMemoryStore_ReserveCapacityConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "product:P1", 10, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.ReserveCapacity(ctx, "product:P1", 1); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 10 {
		t.Errorf("expected exactly 10 winners, got %d", won)
	}

	ledger, _ := store.Get(ctx, "product:P1")
	if ledger.ReservedCapacity != 10 {
		t.Errorf("expected reserved=10, got %d", ledger.ReservedCapacity)
	}
}

func TestMemoryStore_ReleaseCapacityGuards(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "product:P1", 10, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.ReserveCapacity(ctx, "product:P1", 3); err != nil {
		t.Fatalf("ReserveCapacity: %v", err)
	}

	// Releasing more than is held leaves the counter alone.
	if err := store.ReleaseCapacity(ctx, "product:P1", 5); err != nil {
		t.Fatalf("ReleaseCapacity over-release: %v", err)
	}
	ledger, _ := store.Get(ctx, "product:P1")
	if ledger.ReservedCapacity != 3 {
		t.Errorf("over-release must not change the counter, got %d", ledger.ReservedCapacity)
	}

	if err := store.ReleaseCapacity(ctx, "product:P1", 3); err != nil {
		t.Fatalf("ReleaseCapacity: %v", err)
	}
	ledger, _ = store.Get(ctx, "product:P1")
	if ledger.ReservedCapacity != 0 {
		t.Errorf("expected reserved=0, got %d", ledger.ReservedCapacity)
	}
}

func TestMemoryStore_EnsureLedgerDoesNotOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.EnsureLedger(ctx, "night:H1:deluxe:2026-12-01", 5, true)
	if err != nil {
		t.Fatalf("EnsureLedger: %v", err)
	}
	if first.TotalCapacity != 5 {
		t.Fatalf("expected new ledger total=5, got %d", first.TotalCapacity)
	}

	if err := store.ReserveCapacity(ctx, "night:H1:deluxe:2026-12-01", 2); err != nil {
		t.Fatalf("ReserveCapacity: %v", err)
	}

	// A second ensure with a different template total keeps the existing row.
	second, err := store.EnsureLedger(ctx, "night:H1:deluxe:2026-12-01", 9, true)
	if err != nil {
		t.Fatalf("second EnsureLedger: %v", err)
	}
	if second.TotalCapacity != 5 || second.ReservedCapacity != 2 {
		t.Errorf("expected existing row untouched (total=5 reserved=2), got total=%d reserved=%d",
			second.TotalCapacity, second.ReservedCapacity)
	}
}

func TestMemoryStore_TransitionStatusCAS(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	reservation := model.NewReservation("group-1", model.ProductKey("P1"), 2, "order-1", now, now.Add(time.Minute))
	if err := store.Insert(ctx, reservation); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	won, err := store.TransitionStatus(ctx, reservation.ID, model.ReservationActive, model.ReservationReleased)
	if err != nil || !won {
		t.Fatalf("expected first transition to win, got won=%v err=%v", won, err)
	}

	// The losing side of the race observes won=false, not an error.
	won, err = store.TransitionStatus(ctx, reservation.ID, model.ReservationActive, model.ReservationExpired)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if won {
		t.Error("expected second transition from ACTIVE to lose")
	}

	won, _ = store.TransitionStatus(ctx, "missing-id", model.ReservationActive, model.ReservationExpired)
	if won {
		t.Error("expected transition of missing reservation to lose")
	}
}

func TestMemoryStore_ExpiredQueries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	key := model.ProductKey("P1")

	lapsed := model.NewReservation("g1", key, 3, "o1", now.Add(-time.Hour), now.Add(-time.Minute))
	live := model.NewReservation("g2", key, 2, "o2", now, now.Add(time.Hour))
	otherKey := model.NewReservation("g3", model.ProductKey("P2"), 5, "o3", now.Add(-time.Hour), now.Add(-time.Minute))

	for _, r := range []*model.Reservation{lapsed, live, otherKey} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	expired, err := store.FindExpired(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindExpired: %v", err)
	}
	if len(expired) != 2 {
		t.Errorf("expected 2 expired rows, got %d", len(expired))
	}

	if rows, _ := store.FindExpired(ctx, now, 1); len(rows) != 1 {
		t.Errorf("expected limit to cap the batch, got %d rows", len(rows))
	}

	byKey, err := store.FindExpiredByKey(ctx, "product:P1", now)
	if err != nil {
		t.Fatalf("FindExpiredByKey: %v", err)
	}
	if len(byKey) != 1 || byKey[0].GroupID != "g1" {
		t.Errorf("expected only g1 expired on product:P1, got %+v", byKey)
	}

	held, err := store.SumExpiredHeld(ctx, "product:P1", now)
	if err != nil {
		t.Fatalf("SumExpiredHeld: %v", err)
	}
	if held != 3 {
		t.Errorf("expected lapsed quantity 3, got %d", held)
	}
}
