package refundRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verial/database"
	"verial/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no refund record matches the lookup.
var ErrNotFound = errors.New("refund record not found")

// ErrBalanceExceeded is returned by Claim when the requested amount exceeds
// the booking's remaining refundable balance (charged amount minus all
// completed and in-flight refunds).
var ErrBalanceExceeded = errors.New("refund amount exceeds remaining refundable balance")

// ErrClaimConflict is returned when the claim transaction aborted because of
// a concurrent claim on the same booking; the caller should reload and retry.
var ErrClaimConflict = errors.New("concurrent refund claim on booking")

// ErrAlreadyFinalized is returned when finalizing a record that is no longer
// in "processing".
var ErrAlreadyFinalized = errors.New("refund record already finalized")

// RefundRepository is the refund ledger. The "processing" row written by
// Claim is the durable attempt marker; the claim transaction also writes the
// booking document so concurrent claims for one booking serialize instead of
// both passing the balance check. Rows are never deleted.
type RefundRepository interface {
	Claim(ctx context.Context, booking *models.Booking, record *models.RefundRecord) error
	SetGatewayReference(ctx context.Context, id, gatewayRef string) error
	FinalizeCompleted(ctx context.Context, id, gatewayRef string, feeRefunded, providerRefunded int64) error
	FinalizeFailed(ctx context.Context, id, failureReason string) error
	GetByID(ctx context.Context, id string) (*models.RefundRecord, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.RefundRecord, error)
	SumCompleted(ctx context.Context, bookingID string) (int64, error)
	FindStuckProcessing(ctx context.Context, olderThan time.Duration) ([]models.RefundRecord, error)
}

type mongoRefundRepo struct {
	coll        *mongo.Collection
	bookingColl *mongo.Collection
}

// NewMongoRefundRepo creates a RefundRepository backed by MongoDB.
func NewMongoRefundRepo() RefundRepository {
	db := database.MongoClient.Database(database.Name)
	repo := &mongoRefundRepo{
		coll:        db.Collection("refunds"),
		bookingColl: db.Collection("bookings"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create refund indexes: %v\n", err)
	}
	return repo
}
