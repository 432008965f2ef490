package bookingRepo

import (
	"context"
	"errors"
	"fmt"

	"verial/database"
	"verial/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no booking matches the lookup.
var ErrNotFound = errors.New("booking not found")

// ErrStaleStatus is returned by conditional updates when the booking's status
// changed between read and write; the caller lost the race and must reload.
var ErrStaleStatus = errors.New("booking status changed concurrently")

// BookingRepository defines data access for bookings. Every status write is
// conditional on the previously observed status so that check-then-write
// sequences stay serializable per booking.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByPaymentReference(ctx context.Context, ref string) (*models.Booking, error)
	UpdateStatusIf(ctx context.Context, id string, from, to models.BookingStatus) error
	MarkPaid(ctx context.Context, id string, from models.BookingStatus, paymentRef string) error
	SetPaymentReference(ctx context.Context, id, ref string) error
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a BookingRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRepository {
	coll := database.MongoClient.Database(database.Name).Collection("bookings")
	repo := &mongoBookingRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}
