package repository

import (
	"context"
	"fmt"
	"time"

	"stockpile/pkg/config"
	"stockpile/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ReservationCollectionName = "Reservations"

// ReservationRepository stores the itemized holds behind the ledger counters.
// TransitionStatus is the concurrency guard for releasing capacity: only the
// caller that wins the ACTIVE->terminal transition restores the ledger, so a
// release racing the sweeper can never double-restore.
type ReservationRepository interface {
	Insert(ctx context.Context, reservation *model.Reservation) error
	FindByGroupID(ctx context.Context, groupID string) ([]*model.Reservation, error)
	// TransitionStatus atomically moves a reservation from one status to
	// another. Returns false when the reservation was not in the expected
	// status (already transitioned, or missing).
	TransitionStatus(ctx context.Context, id string, from, to model.ReservationStatus) (bool, error)
	// FindExpired returns ACTIVE reservations whose expiry has passed.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
	FindExpiredByKey(ctx context.Context, key string, now time.Time) ([]*model.Reservation, error)
	// SumExpiredHeld totals the quantity of expired-but-unswept ACTIVE holds
	// for one key. Availability reads subtract this so a lapsed hold stops
	// counting before the sweeper catches up.
	SumExpiredHeld(ctx context.Context, key string, now time.Time) (int64, error)
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationCollectionName),
	}
}

func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Insert(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByGroupID(ctx context.Context, groupID string) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "resource_key", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) TransitionStatus(ctx context.Context, id string, from, to model.ReservationStatus) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to transition reservation status: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *mongoReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.ReservationActive,
		"expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode expired reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) FindExpiredByKey(ctx context.Context, key string, now time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_key": key,
		"status":       model.ReservationActive,
		"expires_at":   bson.M{"$lte": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode expired reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) SumExpiredHeld(ctx context.Context, key string, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"resource_key": key,
			"status":       model.ReservationActive,
			"expires_at":   bson.M{"$lte": now},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$quantity"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode expired hold sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
