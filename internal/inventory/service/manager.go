package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	inverrors "stockpile/internal/inventory/errors"
	"stockpile/internal/inventory/repository"
	"stockpile/internal/inventory/validator"
	"stockpile/pkg/config"
	mongotx "stockpile/pkg/db/mongo"
	apperrors "stockpile/pkg/errors"
	"stockpile/pkg/model"

	"github.com/google/uuid"
)

const (
	ReasonInsufficientCapacity = "Insufficient capacity"
	ReasonResourceNotFound     = "Resource not found"
)

// EventPublisher delivers inventory events to downstream consumers. Events
// are best-effort; a publish failure never rolls back the state change it
// describes.
type EventPublisher interface {
	Publish(ctx context.Context, event model.StockEvent) error
}

type ReservationManager interface {
	ReserveBatch(ctx context.Context, req *model.ReserveRequest) (*model.ReserveResult, error)
	ReleaseReservation(ctx context.Context, groupID string) error
	ConfirmReservation(ctx context.Context, groupID string) error
	UpsertCapacity(ctx context.Context, req *model.UpsertCapacityRequest) (*model.Ledger, error)
	AdjustStock(ctx context.Context, req *model.AdjustStockRequest) (*model.StockStatus, error)
	GetStatus(ctx context.Context, resourceKey string) (*model.StockStatus, error)
	SweepExpired(ctx context.Context) (*model.SweepResult, error)
}

type reservationManager struct {
	ledgers      repository.LedgerRepository
	reservations repository.ReservationRepository
	tx           mongotx.TransactionManager
	validator    *validator.InventoryValidator
	events       EventPublisher
	cfg          *config.Config

	// now is the injected clock; expiry decisions and tests depend on it.
	now func() time.Time
}

func NewReservationManager(
	ledgers repository.LedgerRepository,
	reservations repository.ReservationRepository,
	tx mongotx.TransactionManager,
	inventoryValidator *validator.InventoryValidator,
	events EventPublisher,
	cfg *config.Config,
) ReservationManager {
	return &reservationManager{
		ledgers:      ledgers,
		reservations: reservations,
		tx:           tx,
		validator:    inventoryValidator,
		events:       events,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ReserveBatch attempts to hold capacity for every item in the request.
// Commitment is per resource key: a failed item never blocks the others, and
// the result enumerates every shortfall so the caller sees all of them in one
// pass. When any item fails the caller owns the compensating release of the
// partial holds named by ReservationID.
func (m *reservationManager) ReserveBatch(ctx context.Context, req *model.ReserveRequest) (*model.ReserveResult, error) {
	if err := m.validator.ValidateReserve(req); err != nil {
		return nil, apperrors.Validation("Invalid reserve request", map[string]any{
			"errors": err.Error(),
		})
	}

	now := m.now()
	ttl := m.cfg.ReservationTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	expiresAt := now.Add(ttl)
	groupID := uuid.New().String()

	result := &model.ReserveResult{Success: true}
	committed := 0

	for _, item := range req.Items {
		failure, err := m.reserveItem(ctx, groupID, req.HolderID, item, now, expiresAt)
		if err != nil {
			return nil, apperrors.Internal("Failed to reserve stock", err)
		}
		if failure != nil {
			result.Success = false
			result.Failures = append(result.Failures, *failure)
			continue
		}
		committed++
	}

	if committed > 0 {
		result.ReservationID = groupID
		result.ExpiresAt = expiresAt
	}

	if result.Success {
		m.cfg.Log.Info("Reservation created",
			"group_id", groupID,
			"holder_id", req.HolderID,
			"items", len(req.Items),
			"expires_at", expiresAt,
		)
		m.publish(ctx, model.StockEvent{
			Type:       model.EventStockReserved,
			GroupID:    groupID,
			HolderID:   req.HolderID,
			Lines:      eventLines(req.Items),
			OccurredAt: now,
		})
	} else {
		m.cfg.Log.Info("Reservation rejected",
			"group_id", groupID,
			"holder_id", req.HolderID,
			"committed_items", committed,
			"failed_items", len(result.Failures),
		)
	}

	return result, nil
}

func eventLines(items []model.ReserveItem) []model.StockEventLine {
	var lines []model.StockEventLine
	for _, item := range items {
		for _, key := range item.Keys() {
			lines = append(lines, model.StockEventLine{
				ResourceKey: key.String(),
				Quantity:    item.Quantity,
			})
		}
	}
	return lines
}

// reserveItem holds capacity on every key the item resolves to. Items are
// all-or-nothing: a stay range that loses a race on its third night rolls the
// first two nights back before reporting the shortfall.
func (m *reservationManager) reserveItem(
	ctx context.Context,
	groupID, holderID string,
	item model.ReserveItem,
	now, expiresAt time.Time,
) (*model.ReserveFailure, error) {
	keys := item.Keys()
	if len(keys) == 0 {
		// Validation rejects zero-night stays; an item that still expands to
		// no keys must not count as a committed hold.
		return nil, fmt.Errorf("reserve item resolves to no resource keys")
	}
	keyStrs := make([]string, len(keys))
	for i, key := range keys {
		keyStrs[i] = key.String()
	}

	ledgers, err := m.ledgers.GetMany(ctx, keyStrs)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if _, ok := ledgers[key.String()]; ok {
			continue
		}
		ledger, err := m.materializeNightLedger(ctx, key)
		if err != nil {
			return nil, err
		}
		if ledger == nil {
			return &model.ReserveFailure{
				ResourceKey: key.String(),
				Requested:   item.Quantity,
				Reason:      ReasonResourceNotFound,
			}, nil
		}
		ledgers[key.String()] = ledger
	}

	// For stay ranges the binding constraint is the scarcest night; find it
	// before committing any date so an obviously short range costs nothing.
	if len(keys) > 1 {
		if failure, err := m.checkRangeAvailability(ctx, keys, ledgers, item.Quantity, now); failure != nil || err != nil {
			return failure, err
		}
	}

	var held []*model.Reservation
	for _, key := range keys {
		ledger := ledgers[key.String()]
		reservation := model.NewReservation(groupID, key, item.Quantity, holderID, now, expiresAt)

		if !ledger.TrackCapacity {
			// Untracked pools are unlimited; record the hold without
			// touching counters.
			if err := m.reservations.Insert(ctx, reservation); err != nil {
				m.rollbackHolds(ctx, held)
				return nil, err
			}
			held = append(held, reservation)
			continue
		}

		err := m.holdTracked(ctx, key, reservation, item.Quantity, now)
		if errors.Is(err, inverrors.ErrInsufficientCapacity) {
			available := int64(0)
			if current, gerr := m.ledgers.Get(ctx, key.String()); gerr == nil {
				available = current.Available()
			}
			m.rollbackHolds(ctx, held)
			return &model.ReserveFailure{
				ResourceKey: key.String(),
				Requested:   item.Quantity,
				Available:   available,
				Reason:      ReasonInsufficientCapacity,
			}, nil
		}
		if err != nil {
			m.rollbackHolds(ctx, held)
			return nil, err
		}
		held = append(held, reservation)
	}

	return nil, nil
}

// holdTracked commits one key: the conditional capacity increment and the
// reservation row are one transaction. A capacity miss may be caused by
// lapsed holds the sweeper has not reclaimed yet, so those are expired
// in-line and the increment retried within the configured budget.
func (m *reservationManager) holdTracked(
	ctx context.Context,
	key model.ResourceKey,
	reservation *model.Reservation,
	qty int64,
	now time.Time,
) error {
	keyStr := key.String()

	for attempt := 0; attempt < m.cfg.ReserveRetries; attempt++ {
		err := m.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := m.ledgers.ReserveCapacity(txCtx, keyStr, qty); err != nil {
				return err
			}
			return m.reservations.Insert(txCtx, reservation)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, inverrors.ErrInsufficientCapacity) {
			return err
		}

		reclaimed, expErr := m.expireKeyHolds(ctx, keyStr, now)
		if expErr != nil {
			return expErr
		}
		if reclaimed == 0 {
			return inverrors.ErrInsufficientCapacity
		}
	}
	return inverrors.ErrInsufficientCapacity
}

// checkRangeAvailability reports the scarcest night of a stay that cannot
// cover the requested quantity, reclaiming lapsed holds once before giving
// up on a night.
func (m *reservationManager) checkRangeAvailability(
	ctx context.Context,
	keys []model.ResourceKey,
	ledgers map[string]*model.Ledger,
	qty int64,
	now time.Time,
) (*model.ReserveFailure, error) {
	for _, key := range keys {
		keyStr := key.String()
		ledger := ledgers[keyStr]
		ok, err := ledger.CheckAvailability(qty)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}

		if _, err := m.expireKeyHolds(ctx, keyStr, now); err != nil {
			return nil, err
		}
		refreshed, err := m.ledgers.Get(ctx, keyStr)
		if err != nil {
			return nil, err
		}
		ledgers[keyStr] = refreshed

		if refreshed.Available() < qty {
			return &model.ReserveFailure{
				ResourceKey: keyStr,
				Requested:   qty,
				Available:   refreshed.Available(),
				Reason:      ReasonInsufficientCapacity,
			}, nil
		}
	}
	return nil, nil
}

// finalizeHold moves one ACTIVE hold to a terminal status and restores its
// capacity, both inside one transaction: a storage failure between the two
// writes would otherwise strand reserved capacity behind a terminal row.
// Returns whether this caller won the status transition; losing the race is
// not an error, the winner already restored the capacity.
func (m *reservationManager) finalizeHold(ctx context.Context, row *model.Reservation, to model.ReservationStatus) (bool, error) {
	won := false
	err := m.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		w, err := m.reservations.TransitionStatus(txCtx, row.ID, model.ReservationActive, to)
		if err != nil {
			return err
		}
		won = w
		if !w {
			return nil
		}
		return m.ledgers.ReleaseCapacity(txCtx, row.Key, row.Quantity)
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// rollbackHolds reverses holds committed earlier in the same item. The
// status CAS keeps the rollback idempotent against a concurrent sweep.
func (m *reservationManager) rollbackHolds(ctx context.Context, held []*model.Reservation) {
	for i := len(held) - 1; i >= 0; i-- {
		reservation := held[i]
		if _, err := m.finalizeHold(ctx, reservation, model.ReservationReleased); err != nil {
			m.cfg.Log.Error("Failed to roll back reservation hold",
				"reservation_id", reservation.ID,
				"resource_key", reservation.Key,
				"error", err,
			)
		}
	}
}

// materializeNightLedger lazily creates the ledger row for a night the first
// time the date is touched, copying capacity from its room-type template.
// Returns nil for non-night keys and for nights with no template; the caller
// reports those as unknown resources.
func (m *reservationManager) materializeNightLedger(ctx context.Context, key model.ResourceKey) (*model.Ledger, error) {
	if key.Kind != model.KeyKindNight {
		return nil, nil
	}

	template, err := m.ledgers.Get(ctx, key.TemplateKey().String())
	if errors.Is(err, inverrors.ErrLedgerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ledgers.EnsureLedger(ctx, key.String(), template.TotalCapacity, template.TrackCapacity)
}

// ReleaseReservation releases every hold in the group and restores ledger
// capacity. Idempotent: unknown groups and already-terminal holds are no-ops.
func (m *reservationManager) ReleaseReservation(ctx context.Context, groupID string) error {
	if groupID == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	rows, err := m.reservations.FindByGroupID(ctx, groupID)
	if err != nil {
		return apperrors.Internal("Failed to load reservation", err)
	}
	if len(rows) == 0 {
		return nil
	}

	released := 0
	var lines []model.StockEventLine
	for _, row := range rows {
		won, err := m.finalizeHold(ctx, row, model.ReservationReleased)
		if err != nil {
			return apperrors.Internal("Failed to release reservation", err)
		}
		if !won {
			continue
		}
		released++
		lines = append(lines, model.StockEventLine{ResourceKey: row.Key, Quantity: row.Quantity})
	}

	if released > 0 {
		m.cfg.Log.Info("Reservation released",
			"group_id", groupID,
			"released_holds", released,
		)
		m.publish(ctx, model.StockEvent{
			Type:       model.EventReservationReleased,
			GroupID:    groupID,
			Lines:      lines,
			OccurredAt: m.now(),
		})
	}
	return nil
}

// ConfirmReservation finalizes the group as sold stock. Capacity stays
// committed; only the status changes. Terminal or lapsed holds conflict.
func (m *reservationManager) ConfirmReservation(ctx context.Context, groupID string) error {
	if groupID == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	rows, err := m.reservations.FindByGroupID(ctx, groupID)
	if err != nil {
		return apperrors.Internal("Failed to load reservation", err)
	}
	if len(rows) == 0 {
		return apperrors.NotFoundWithID("Reservation", groupID)
	}

	now := m.now()
	for _, row := range rows {
		if row.IsTerminal() {
			return apperrors.Conflict("Reservation is already finalized")
		}
		if row.IsExpired(now) {
			return apperrors.Conflict("Reservation hold has lapsed")
		}
	}

	var lines []model.StockEventLine
	for _, row := range rows {
		won, err := m.reservations.TransitionStatus(ctx, row.ID, model.ReservationActive, model.ReservationConfirmed)
		if err != nil {
			return apperrors.Internal("Failed to confirm reservation", err)
		}
		if !won {
			// Lost the race to the sweeper between the check above and here.
			return apperrors.Conflict("Reservation hold has lapsed")
		}
		lines = append(lines, model.StockEventLine{ResourceKey: row.Key, Quantity: row.Quantity})
	}

	m.cfg.Log.Info("Reservation confirmed",
		"group_id", groupID,
		"holds", len(rows),
	)
	m.publish(ctx, model.StockEvent{
		Type:       model.EventReservationConfirmed,
		GroupID:    groupID,
		Lines:      lines,
		OccurredAt: now,
	})
	return nil
}

func (m *reservationManager) UpsertCapacity(ctx context.Context, req *model.UpsertCapacityRequest) (*model.Ledger, error) {
	if err := m.validator.ValidateUpsertCapacity(req); err != nil {
		return nil, apperrors.Validation("Invalid capacity request", map[string]any{
			"errors": err.Error(),
		})
	}

	ledger, err := m.ledgers.Upsert(ctx, req.Key().String(), req.TotalCapacity, req.TrackCapacity)
	if err != nil {
		return nil, apperrors.Internal("Failed to upsert capacity", err)
	}

	m.cfg.Log.Info("Capacity upserted",
		"resource_key", ledger.Key,
		"total_capacity", ledger.TotalCapacity,
		"track_capacity", ledger.TrackCapacity,
	)
	return ledger, nil
}

// AdjustStock overwrites the total for a key without touching outstanding
// reservations. A total below the reserved count leaves the ledger oversold;
// that state is surfaced for the caller to reconcile, never clamped.
func (m *reservationManager) AdjustStock(ctx context.Context, req *model.AdjustStockRequest) (*model.StockStatus, error) {
	if err := m.validator.ValidateAdjustStock(req); err != nil {
		return nil, apperrors.Validation("Invalid stock adjustment", map[string]any{
			"errors": err.Error(),
		})
	}

	ledger, err := m.ledgers.SetTotalCapacity(ctx, req.ResourceKey, req.NewTotal)
	if err != nil {
		if errors.Is(err, inverrors.ErrLedgerNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", req.ResourceKey)
		}
		return nil, apperrors.Internal("Failed to adjust stock", err)
	}

	status := m.statusFor(ctx, ledger)
	if status.Oversold {
		m.cfg.Log.Warn("Stock adjustment left ledger oversold",
			"resource_key", ledger.Key,
			"total_capacity", ledger.TotalCapacity,
			"reserved_capacity", ledger.ReservedCapacity,
		)
	} else {
		m.cfg.Log.Info("Stock adjusted",
			"resource_key", ledger.Key,
			"total_capacity", ledger.TotalCapacity,
		)
	}

	m.publish(ctx, model.StockEvent{
		Type:        model.EventStockAdjusted,
		ResourceKey: ledger.Key,
		Lines: []model.StockEventLine{
			{ResourceKey: ledger.Key, Quantity: ledger.TotalCapacity},
		},
		OccurredAt: m.now(),
	})
	return status, nil
}

func (m *reservationManager) GetStatus(ctx context.Context, resourceKey string) (*model.StockStatus, error) {
	if _, err := model.ParseResourceKey(resourceKey); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	ledger, err := m.ledgers.Get(ctx, resourceKey)
	if err != nil {
		if errors.Is(err, inverrors.ErrLedgerNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", resourceKey)
		}
		return nil, apperrors.Internal("Failed to load stock status", err)
	}

	return m.statusFor(ctx, ledger), nil
}

// statusFor combines the ledger counters with the registry's view of lapsed
// holds: an expired-but-unswept hold must not count against availability
// even before the sweeper reconciles the stored counter.
func (m *reservationManager) statusFor(ctx context.Context, ledger *model.Ledger) *model.StockStatus {
	status := &model.StockStatus{
		ResourceKey:      ledger.Key,
		TotalQuantity:    ledger.TotalCapacity,
		ReservedQuantity: ledger.ReservedCapacity,
		TrackQuantity:    ledger.TrackCapacity,
	}

	if !ledger.TrackCapacity {
		status.Unlimited = true
		return status
	}

	expiredHeld, err := m.reservations.SumExpiredHeld(ctx, ledger.Key, m.now())
	if err != nil {
		m.cfg.Log.Warn("Failed to sum lapsed holds; reporting stored counters",
			"resource_key", ledger.Key,
			"error", err,
		)
		expiredHeld = 0
	}

	status.ReservedQuantity = ledger.ReservedCapacity - expiredHeld
	status.AvailableQuantity = ledger.TotalCapacity - status.ReservedQuantity
	status.Oversold = status.ReservedQuantity > ledger.TotalCapacity
	return status
}

func (m *reservationManager) publish(ctx context.Context, event model.StockEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.cfg.Log.Warn("Failed to publish inventory event",
			"event_type", event.Type,
			"group_id", event.GroupID,
			"error", err,
		)
	}
}
