package service

import (
	"context"
	"time"

	"stockpile/pkg/model"
)

// SweepExpired reclaims lapsed holds in batches: each ACTIVE reservation past
// its expiry is stamped EXPIRED and its capacity restored. The status CAS
// makes the sweep safe against a concurrent release or lazy reclaim of the
// same hold.
func (m *reservationManager) SweepExpired(ctx context.Context) (*model.SweepResult, error) {
	now := m.now()
	total := 0

	for {
		rows, err := m.reservations.FindExpired(ctx, now, m.cfg.SweepBatchSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		released, err := m.expireRows(ctx, rows)
		if err != nil {
			return nil, err
		}
		total += released

		// A short batch means the backlog is drained. A full batch with no
		// CAS wins means every row was claimed by a competing sweep; stop
		// rather than spin on the same rows.
		if len(rows) < m.cfg.SweepBatchSize || released == 0 {
			break
		}
	}

	if total > 0 {
		m.cfg.Log.Info("Swept expired reservations", "released_holds", total)
	}
	return &model.SweepResult{ReleasedCount: total}, nil
}

// expireKeyHolds reclaims lapsed holds on a single key. The reserve path uses
// it when a capacity miss may be explained by holds the sweeper has not
// reached yet. Returns the quantity reclaimed.
func (m *reservationManager) expireKeyHolds(ctx context.Context, key string, now time.Time) (int64, error) {
	rows, err := m.reservations.FindExpiredByKey(ctx, key, now)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	reclaimed := int64(0)
	for _, row := range rows {
		won, err := m.finalizeHold(ctx, row, model.ReservationExpired)
		if err != nil {
			return reclaimed, err
		}
		if !won {
			continue
		}
		reclaimed += row.Quantity
		m.publishExpired(ctx, row)
	}
	return reclaimed, nil
}

func (m *reservationManager) expireRows(ctx context.Context, rows []*model.Reservation) (int, error) {
	released := 0
	for _, row := range rows {
		won, err := m.finalizeHold(ctx, row, model.ReservationExpired)
		if err != nil {
			m.cfg.Log.Error("Failed to expire reservation hold",
				"reservation_id", row.ID,
				"resource_key", row.Key,
				"error", err,
			)
			continue
		}
		if !won {
			continue
		}
		released++
		m.publishExpired(ctx, row)
	}
	return released, nil
}

func (m *reservationManager) publishExpired(ctx context.Context, row *model.Reservation) {
	m.publish(ctx, model.StockEvent{
		Type:     model.EventReservationExpired,
		GroupID:  row.GroupID,
		HolderID: row.HolderID,
		Lines: []model.StockEventLine{
			{ResourceKey: row.Key, Quantity: row.Quantity},
		},
		OccurredAt: m.now(),
	})
}

// SweepRunner drives SweepExpired on a fixed interval until stopped.
type SweepRunner struct {
	manager  ReservationManager
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	logger   sweepLogger
}

type sweepLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func NewSweepRunner(manager ReservationManager, interval time.Duration, logger sweepLogger) *SweepRunner {
	return &SweepRunner{
		manager:  manager,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

func (r *SweepRunner) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *SweepRunner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Expiry sweeper started", "interval", r.interval)
	for {
		select {
		case <-ticker.C:
			if _, err := r.manager.SweepExpired(ctx); err != nil {
				r.logger.Error("Sweep cycle failed", "error", err)
			}
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the runner and waits for the in-flight cycle to finish.
func (r *SweepRunner) Stop() {
	close(r.stop)
	<-r.done
}
