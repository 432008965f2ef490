package refundRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verial/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Claim atomically re-checks the remaining refundable balance and inserts the
// "processing" attempt row inside one transaction. Completed and still
// in-flight refunds both count against the balance. The balance read alone
// would not serialize concurrent claims (snapshot reads take no locks and the
// inserted rows are distinct documents), so the transaction first bumps a
// claim version on the booking document itself: overlapping claims for the
// same booking then write the same document and one of them aborts with a
// transient transaction error instead of both committing. The transaction is
// the only lock held; it never spans the gateway call.
func (r *mongoRefundRepo) Claim(ctx context.Context, booking *models.Booking, record *models.RefundRecord) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	now := time.Now()
	record.Status = models.RefundProcessing
	record.CreatedAt = now
	record.UpdatedAt = now

	txnFn := func(sc mongo.SessionContext) error {
		res, err := r.bookingColl.UpdateOne(sc,
			bson.M{"id": booking.ID},
			bson.M{"$inc": bson.M{"refundClaimVersion": 1}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// Booking vanished between the caller's read and the claim.
			return ErrClaimConflict
		}

		reserved, err := r.sumByStatuses(sc, booking.ID,
			models.RefundCompleted, models.RefundProcessing)
		if err != nil {
			return err
		}
		if record.Amount > booking.ChargedAmount-reserved {
			return ErrBalanceExceeded
		}

		if _, err := r.coll.InsertOne(sc, record); err != nil {
			return fmt.Errorf("insert refund attempt failed: %w", err)
		}
		return nil
	}

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
	if errors.Is(err, ErrBalanceExceeded) {
		return err
	}
	if err != nil {
		if isTransientTxnError(err) {
			return ErrClaimConflict
		}
		return fmt.Errorf("refund claim transaction failed: %w", err)
	}
	return nil
}

// SetGatewayReference links the processor's refund id to a still-processing
// attempt. Repair passes then poll that refund instead of re-creating it,
// which matters once the create call's idempotency key has expired at the
// processor.
func (r *mongoRefundRepo) SetGatewayReference(ctx context.Context, id, gatewayRef string) error {
	filter := bson.M{"id": id, "status": models.RefundProcessing}
	update := bson.M{"$set": bson.M{
		"gatewayRefundReference": gatewayRef,
		"updatedAt":              time.Now(),
	}}

	return r.updateProcessing(ctx, id, filter, update)
}

// FinalizeCompleted marks the attempt completed with the gateway reference
// and the prorated split. Only a "processing" row can be finalized.
func (r *mongoRefundRepo) FinalizeCompleted(ctx context.Context, id, gatewayRef string, feeRefunded, providerRefunded int64) error {
	now := time.Now()
	filter := bson.M{"id": id, "status": models.RefundProcessing}
	update := bson.M{"$set": bson.M{
		"status":                 models.RefundCompleted,
		"gatewayRefundReference": gatewayRef,
		"platformFeeRefunded":    feeRefunded,
		"providerAmountRefunded": providerRefunded,
		"processedAt":            now,
		"updatedAt":              now,
	}}

	return r.updateProcessing(ctx, id, filter, update)
}

// FinalizeFailed marks the attempt failed, keeping the row as audit trail.
func (r *mongoRefundRepo) FinalizeFailed(ctx context.Context, id, failureReason string) error {
	now := time.Now()
	filter := bson.M{"id": id, "status": models.RefundProcessing}
	update := bson.M{"$set": bson.M{
		"status":        models.RefundFailed,
		"failureReason": failureReason,
		"processedAt":   now,
		"updatedAt":     now,
	}}

	return r.updateProcessing(ctx, id, filter, update)
}

func (r *mongoRefundRepo) updateProcessing(ctx context.Context, id string, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to finalize refund record: %w", err)
	}
	if res.MatchedCount == 0 {
		if count, cerr := r.coll.CountDocuments(ctx, bson.M{"id": id}); cerr == nil && count == 0 {
			return ErrNotFound
		}
		return ErrAlreadyFinalized
	}
	return nil
}

// GetByID returns a refund record by its id.
func (r *mongoRefundRepo) GetByID(ctx context.Context, id string) (*models.RefundRecord, error) {
	var record models.RefundRecord
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByBooking returns all refund attempts for a booking, oldest first.
func (r *mongoRefundRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.RefundRecord, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"bookingId": bookingID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.RefundRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SumCompleted returns the cumulative amount of completed refunds for a
// booking.
func (r *mongoRefundRepo) SumCompleted(ctx context.Context, bookingID string) (int64, error) {
	return r.sumByStatuses(ctx, bookingID, models.RefundCompleted)
}

// FindStuckProcessing returns "processing" rows older than the threshold, for
// the reconciliation pass that repairs attempts orphaned by gateway timeouts.
func (r *mongoRefundRepo) FindStuckProcessing(ctx context.Context, olderThan time.Duration) ([]models.RefundRecord, error) {
	cutoff := time.Now().Add(-olderThan)
	filter := bson.M{
		"status":    models.RefundProcessing,
		"createdAt": bson.M{"$lt": cutoff},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.RefundRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *mongoRefundRepo) sumByStatuses(ctx context.Context, bookingID string, statuses ...models.RefundStatus) (int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"bookingId": bookingID,
			"status":    bson.M{"$in": statuses},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func isTransientTxnError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return true
	}
	// Write conflicts on the booking claim-version bump surface as write
	// exceptions carrying the same label.
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) && writeErr.HasErrorLabel("TransientTransactionError") {
		return true
	}
	return false
}
