package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	inverrors "stockpile/internal/inventory/errors"
	mongotx "stockpile/pkg/db/mongo"
	"stockpile/pkg/model"
)

// MemoryStore is an in-memory implementation of LedgerRepository,
// ReservationRepository, and the transaction manager, used for development
// and tests. The mutex gives each conditional operation the same atomicity
// the Mongo filters provide.
type MemoryStore struct {
	mu           sync.Mutex
	ledgers      map[string]*model.Ledger
	reservations map[string]*model.Reservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers:      make(map[string]*model.Ledger),
		reservations: make(map[string]*model.Reservation),
	}
}

var _ LedgerRepository = (*MemoryStore)(nil)
var _ ReservationRepository = (*MemoryStore)(nil)
var _ mongotx.TransactionManager = (*MemoryStore)(nil)

// ExecuteTransaction runs fn directly; each individual operation is already
// atomic under the store mutex.
func (s *MemoryStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func cloneLedger(l *model.Ledger) *model.Ledger {
	c := *l
	return &c
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	c := *r
	return &c
}

func (s *MemoryStore) Upsert(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok {
		ledger = &model.Ledger{Key: key}
		s.ledgers[key] = ledger
	}
	ledger.TotalCapacity = total
	ledger.TrackCapacity = track
	ledger.UpdatedAt = time.Now().UTC()
	return cloneLedger(ledger), nil
}

func (s *MemoryStore) EnsureLedger(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok {
		ledger = &model.Ledger{
			Key:           key,
			TotalCapacity: total,
			TrackCapacity: track,
			UpdatedAt:     time.Now().UTC(),
		}
		s.ledgers[key] = ledger
	}
	return cloneLedger(ledger), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok {
		return nil, inverrors.ErrLedgerNotFound
	}
	return cloneLedger(ledger), nil
}

func (s *MemoryStore) GetMany(ctx context.Context, keys []string) (map[string]*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[string]*model.Ledger, len(keys))
	for _, key := range keys {
		if ledger, ok := s.ledgers[key]; ok {
			byKey[key] = cloneLedger(ledger)
		}
	}
	return byKey, nil
}

func (s *MemoryStore) ReserveCapacity(ctx context.Context, key string, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok || !ledger.TrackCapacity || ledger.ReservedCapacity+qty > ledger.TotalCapacity {
		return inverrors.ErrInsufficientCapacity
	}
	ledger.ReservedCapacity += qty
	ledger.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ReleaseCapacity(ctx context.Context, key string, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok || !ledger.TrackCapacity || ledger.ReservedCapacity < qty {
		return nil
	}
	ledger.ReservedCapacity -= qty
	ledger.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetTotalCapacity(ctx context.Context, key string, newTotal int64) (*model.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[key]
	if !ok {
		return nil, inverrors.ErrLedgerNotFound
	}
	ledger.TotalCapacity = newTotal
	ledger.UpdatedAt = time.Now().UTC()
	return cloneLedger(ledger), nil
}

func (s *MemoryStore) Insert(ctx context.Context, reservation *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

func (s *MemoryStore) FindByGroupID(ctx context.Context, groupID string) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Reservation
	for _, r := range s.reservations {
		if r.GroupID == groupID {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) TransitionStatus(ctx context.Context, id string, from, to model.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (s *MemoryStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Reservation
	for _, r := range s.reservations {
		if r.Status == model.ReservationActive && !r.ExpiresAt.After(now) {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) FindExpiredByKey(ctx context.Context, key string, now time.Time) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Reservation
	for _, r := range s.reservations {
		if r.Key == key && r.Status == model.ReservationActive && !r.ExpiresAt.After(now) {
			out = append(out, cloneReservation(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) SumExpiredHeld(ctx context.Context, key string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, r := range s.reservations {
		if r.Key == key && r.Status == model.ReservationActive && !r.ExpiresAt.After(now) {
			total += r.Quantity
		}
	}
	return total, nil
}
