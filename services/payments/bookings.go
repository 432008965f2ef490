package payments

import (
	"context"
	"errors"

	bookingRepo "verial/database/repository/booking"
	"verial/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Typed lifecycle commands. Each names exactly the fields its operation may
// touch; status changes always flow through the adjacency table.

type CreateBookingCommand struct {
	CustomerID string
	ProviderID string
	ServiceID  string
	Amount     int64
	Currency   string
}

type AcceptBookingCommand struct {
	BookingID  string
	ProviderID string
}

type DeclineBookingCommand struct {
	BookingID  string
	ProviderID string
}

type CancelBookingCommand struct {
	BookingID  string
	ActorID    string
	ByProvider bool
}

type CompleteBookingCommand struct {
	BookingID  string
	ActorID    string
	ByProvider bool
}

type OpenDisputeCommand struct {
	BookingID  string
	CustomerID string
	Reason     string
}

type ResolveDisputeCommand struct {
	BookingID string
	AdminID   string
}

// BookingCommandService applies lifecycle commands with optimistic
// conditional status writes.
type BookingCommandService struct {
	Bookings bookingRepo.BookingRepository
	Logger   *zap.Logger
}

func NewBookingCommandService(bookings bookingRepo.BookingRepository, logger *zap.Logger) *BookingCommandService {
	return &BookingCommandService{Bookings: bookings, Logger: logger}
}

// Create registers a new pending booking.
func (s *BookingCommandService) Create(ctx context.Context, cmd CreateBookingCommand) (*models.Booking, error) {
	if cmd.CustomerID == "" || cmd.ProviderID == "" || cmd.ServiceID == "" {
		return nil, NewValidationError("customer, provider and service ids are required")
	}
	if cmd.Amount <= 0 {
		return nil, NewValidationError("booking amount must be positive, got %d", cmd.Amount)
	}

	booking := &models.Booking{
		ID:            uuid.New().String(),
		CustomerID:    cmd.CustomerID,
		ProviderID:    cmd.ProviderID,
		ServiceID:     cmd.ServiceID,
		Status:        models.BookingPending,
		ChargedAmount: cmd.Amount,
		Currency:      cmd.Currency,
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, &TransientError{Op: "create booking", Err: err}
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", booking.ID),
		zap.String("providerId", booking.ProviderID))
	return booking, nil
}

// Get returns a booking by id.
func (s *BookingCommandService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, id)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "booking", ID: id}
	}
	if err != nil {
		return nil, &TransientError{Op: "load booking", Err: err}
	}
	return booking, nil
}

// Accept moves a pending booking to accepted.
func (s *BookingCommandService) Accept(ctx context.Context, cmd AcceptBookingCommand) (*models.Booking, error) {
	return s.transition(ctx, cmd.BookingID, models.BookingAccepted)
}

// Decline moves a pending booking to declined.
func (s *BookingCommandService) Decline(ctx context.Context, cmd DeclineBookingCommand) (*models.Booking, error) {
	return s.transition(ctx, cmd.BookingID, models.BookingDeclined)
}

// Cancel cancels a booking on behalf of the customer or the provider.
func (s *BookingCommandService) Cancel(ctx context.Context, cmd CancelBookingCommand) (*models.Booking, error) {
	target := models.BookingCanceledCustomer
	if cmd.ByProvider {
		target = models.BookingCanceledProvider
	}
	return s.transition(ctx, cmd.BookingID, target)
}

// Complete marks service delivery, by the customer or by the provider.
func (s *BookingCommandService) Complete(ctx context.Context, cmd CompleteBookingCommand) (*models.Booking, error) {
	target := models.BookingCompleted
	if cmd.ByProvider {
		target = models.BookingCompletedByProvider
	}
	return s.transition(ctx, cmd.BookingID, target)
}

// OpenDispute flags a paid or completed booking as disputed.
func (s *BookingCommandService) OpenDispute(ctx context.Context, cmd OpenDisputeCommand) (*models.Booking, error) {
	if cmd.Reason == "" {
		return nil, NewValidationError("dispute reason is required")
	}
	return s.transition(ctx, cmd.BookingID, models.BookingDisputed)
}

// ResolveDispute closes a dispute in the provider's favour, returning the
// booking to completed. Resolution in the customer's favour is a refund and
// goes through the refund processor, which settles the booking to refunded
// once the ledger is fully refunded.
func (s *BookingCommandService) ResolveDispute(ctx context.Context, cmd ResolveDisputeCommand) (*models.Booking, error) {
	return s.transition(ctx, cmd.BookingID, models.BookingCompleted)
}

// transition applies one conditional status change, retrying lost races with
// a fresh read.
func (s *BookingCommandService) transition(ctx context.Context, bookingID string, target models.BookingStatus) (*models.Booking, error) {
	for attempt := 0; attempt < 3; attempt++ {
		booking, err := s.Get(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if err := AssertTransition(booking.Status, target); err != nil {
			return nil, err
		}

		err = s.Bookings.UpdateStatusIf(ctx, bookingID, booking.Status, target)
		if errors.Is(err, bookingRepo.ErrStaleStatus) {
			continue
		}
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &NotFoundError{Resource: "booking", ID: bookingID}
		}
		if err != nil {
			return nil, &TransientError{Op: "update booking status", Err: err}
		}

		booking.Status = target
		s.Logger.Info("booking transitioned",
			zap.String("bookingId", bookingID),
			zap.String("status", string(target)))
		return booking, nil
	}
	return nil, &ConcurrencyConflictError{BookingID: bookingID}
}
