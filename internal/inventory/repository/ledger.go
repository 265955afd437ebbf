package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	inverrors "stockpile/internal/inventory/errors"
	"stockpile/pkg/config"
	"stockpile/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LedgerCollectionName = "Ledgers"

// LedgerRepository is the capacity-counter store. ReserveCapacity and
// ReleaseCapacity are the only mutation paths the reservation flow uses, and
// both are storage-level conditional updates: the availability check and the
// increment happen in one atomic operation, so concurrent reservations on the
// same key can never combine into an oversell.
type LedgerRepository interface {
	Upsert(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error)
	// EnsureLedger creates the ledger row if absent without touching an
	// existing one. Used for lazy creation of per-night rows.
	EnsureLedger(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error)
	Get(ctx context.Context, key string) (*model.Ledger, error)
	GetMany(ctx context.Context, keys []string) (map[string]*model.Ledger, error)
	// ReserveCapacity atomically increments reserved by qty where
	// reserved+qty <= total. Returns ErrInsufficientCapacity when the
	// conditional update matched nothing on an existing tracked ledger.
	ReserveCapacity(ctx context.Context, key string, qty int64) error
	// ReleaseCapacity atomically decrements reserved by qty, guarded so the
	// counter never goes negative. A no-op on untracked ledgers.
	ReleaseCapacity(ctx context.Context, key string, qty int64) error
	// SetTotalCapacity overwrites the total without touching reserved. The
	// ledger may come back oversold; callers surface that, never clamp it.
	SetTotalCapacity(ctx context.Context, key string, newTotal int64) (*model.Ledger, error)
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: db.Collection(LedgerCollectionName),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContexts are passed through untouched; wrapping them would break
// transaction semantics.
func (r *mongoLedgerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoLedgerRepository) Upsert(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"total_capacity": total,
			"track_capacity": track,
			"updated_at":     time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"reserved_capacity": int64(0),
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var ledger model.Ledger
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&ledger); err != nil {
		return nil, fmt.Errorf("failed to upsert ledger: %w", err)
	}
	return &ledger, nil
}

func (r *mongoLedgerRepository) EnsureLedger(ctx context.Context, key string, total int64, track bool) (*model.Ledger, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$setOnInsert": bson.M{
			"total_capacity":    total,
			"reserved_capacity": int64(0),
			"track_capacity":    track,
			"updated_at":        time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var ledger model.Ledger
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&ledger); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger: %w", err)
	}
	return &ledger, nil
}

func (r *mongoLedgerRepository) Get(ctx context.Context, key string) (*model.Ledger, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var ledger model.Ledger
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&ledger)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, inverrors.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to find ledger: %w", err)
	}
	return &ledger, nil
}

func (r *mongoLedgerRepository) GetMany(ctx context.Context, keys []string) (map[string]*model.Ledger, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("failed to find ledgers: %w", err)
	}
	defer cursor.Close(ctx)

	var ledgers []*model.Ledger
	if err = cursor.All(ctx, &ledgers); err != nil {
		return nil, fmt.Errorf("failed to decode ledgers: %w", err)
	}

	byKey := make(map[string]*model.Ledger, len(ledgers))
	for _, l := range ledgers {
		byKey[l.Key] = l
	}
	return byKey, nil
}

func (r *mongoLedgerRepository) ReserveCapacity(ctx context.Context, key string, qty int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// The filter carries the availability check; Mongo applies filter and
	// $inc atomically, so "check then increment" cannot interleave with a
	// concurrent writer.
	filter := bson.M{
		"_id":            key,
		"track_capacity": true,
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$add": bson.A{"$reserved_capacity", qty}},
				"$total_capacity",
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"reserved_capacity": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve capacity: %w", err)
	}
	if result.MatchedCount == 0 {
		return inverrors.ErrInsufficientCapacity
	}
	return nil
}

func (r *mongoLedgerRepository) ReleaseCapacity(ctx context.Context, key string, qty int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// Floor guard: reserved_capacity never goes negative even if a stray
	// duplicate release slips past the status CAS.
	filter := bson.M{
		"_id":               key,
		"track_capacity":    true,
		"reserved_capacity": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"reserved_capacity": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	return nil
}

func (r *mongoLedgerRepository) SetTotalCapacity(ctx context.Context, key string, newTotal int64) (*model.Ledger, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"total_capacity": newTotal,
			"updated_at":     time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ledger model.Ledger
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&ledger)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, inverrors.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("failed to set total capacity: %w", err)
	}
	return &ledger, nil
}
