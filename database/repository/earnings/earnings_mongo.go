package earningsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verial/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertOnPayment creates the booking's earnings record if none exists yet.
// The write is keyed by bookingId with $setOnInsert only, so redelivered
// payment events can never produce a second record or overwrite the split of
// the first one.
func (r *mongoEarningsRepo) UpsertOnPayment(ctx context.Context, record models.EarningsRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	filter := bson.M{"bookingId": record.BookingID}
	update := bson.M{"$setOnInsert": record}
	opts := options.Update().SetUpsert(true)

	res, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost an upsert race to a concurrent delivery; the record exists.
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert earnings record: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

// GetByBookingID returns the ledger record for a booking.
func (r *mongoEarningsRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.EarningsRecord, error) {
	var record models.EarningsRecord
	err := r.coll.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SummarizeByProvider aggregates net amounts for a provider in one payout
// status, for the external payout subsystem.
func (r *mongoEarningsRepo) SummarizeByProvider(ctx context.Context, providerID string, status models.EarningsStatus) (*models.ProviderEarningsSummary, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"providerId": providerID,
			"status":     status,
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            "$providerId",
			"totalNetAmount": bson.M{"$sum": "$netAmount"},
			"recordCount":    bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate provider earnings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.ProviderEarningsSummary
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.ProviderEarningsSummary{ProviderID: providerID}, nil
	}
	return &results[0], nil
}

// UpdateStatus advances a record through the payout pipeline, conditional on
// the expected current status.
func (r *mongoEarningsRepo) UpdateStatus(ctx context.Context, bookingID string, from, to models.EarningsStatus) error {
	filter := bson.M{"bookingId": bookingID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update earnings status: %w", err)
	}
	if res.MatchedCount == 0 {
		if count, cerr := r.coll.CountDocuments(ctx, bson.M{"bookingId": bookingID}); cerr == nil && count == 0 {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

// SetTransferReference records the payout transfer id from the processor.
func (r *mongoEarningsRepo) SetTransferReference(ctx context.Context, bookingID, transferRef string) error {
	update := bson.M{"$set": bson.M{
		"transferReference": transferRef,
		"updatedAt":         time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"bookingId": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to set transfer reference: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
