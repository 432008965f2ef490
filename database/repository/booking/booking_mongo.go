package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verial/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new booking.
func (r *mongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetByID returns a booking by its id.
func (r *mongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByPaymentReference resolves a booking through the processor's charge id.
func (r *mongoBookingRepo) GetByPaymentReference(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"paymentReference": ref}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatusIf moves the booking from one status to another only if the
// current stored status still equals the expected one. A zero match means the
// status moved underneath the caller.
func (r *mongoBookingRepo) UpdateStatusIf(ctx context.Context, id string, from, to models.BookingStatus) error {
	filter := bson.M{"id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if res.MatchedCount == 0 {
		if exists, eerr := r.exists(ctx, id); eerr == nil && !exists {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

// MarkPaid transitions the booking to "paid" and links the payment reference
// in a single conditional write.
func (r *mongoBookingRepo) MarkPaid(ctx context.Context, id string, from models.BookingStatus, paymentRef string) error {
	filter := bson.M{"id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":           models.BookingPaid,
		"paymentReference": paymentRef,
		"updatedAt":        time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	if res.MatchedCount == 0 {
		if exists, eerr := r.exists(ctx, id); eerr == nil && !exists {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

// SetPaymentReference repairs the charge linkage without touching status.
func (r *mongoBookingRepo) SetPaymentReference(ctx context.Context, id, ref string) error {
	update := bson.M{"$set": bson.M{
		"paymentReference": ref,
		"updatedAt":        time.Now(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepo) exists(ctx context.Context, id string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
