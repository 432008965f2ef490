package earningsRepo

import (
	"context"
	"errors"
	"fmt"

	"verial/database"
	"verial/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no earnings record matches the lookup.
var ErrNotFound = errors.New("earnings record not found")

// ErrStaleStatus is returned when a payout status update finds the record in
// a different status than expected.
var ErrStaleStatus = errors.New("earnings status changed concurrently")

// EarningsRepository is the per-booking fee-split ledger. A booking has at
// most one record, created by an idempotent upsert on first successful
// payment reconciliation.
type EarningsRepository interface {
	UpsertOnPayment(ctx context.Context, record models.EarningsRecord) (created bool, err error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.EarningsRecord, error)
	SummarizeByProvider(ctx context.Context, providerID string, status models.EarningsStatus) (*models.ProviderEarningsSummary, error)
	UpdateStatus(ctx context.Context, bookingID string, from, to models.EarningsStatus) error
	SetTransferReference(ctx context.Context, bookingID, transferRef string) error
}

type mongoEarningsRepo struct {
	coll *mongo.Collection
}

// NewMongoEarningsRepo creates an EarningsRepository backed by MongoDB.
func NewMongoEarningsRepo() EarningsRepository {
	coll := database.MongoClient.Database(database.Name).Collection("earnings")
	repo := &mongoEarningsRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create earnings indexes: %v\n", err)
	}
	return repo
}
