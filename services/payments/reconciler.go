package payments

import (
	"context"
	"errors"

	bookingRepo "verial/database/repository/booking"
	earningsRepo "verial/database/repository/earnings"
	"verial/models"

	"go.uber.org/zap"
)

// ReconcileOutcome is the explicit decision taken for one delivered event.
// The webhook handler acknowledges success for every outcome; only a non-nil
// error (always a TransientError) requests redelivery.
type ReconcileOutcome string

const (
	OutcomeApplied  ReconcileOutcome = "applied"
	OutcomeNoOp     ReconcileOutcome = "noop"
	OutcomeRejected ReconcileOutcome = "rejected"
)

// ReconcileResult reports what the reconciler did with an event.
type ReconcileResult struct {
	Outcome   ReconcileOutcome
	BookingID string
	Detail    string
}

const reconcileAttempts = 3

// Reconciler consumes verified payment-processor events and idempotently
// advances booking status and the earnings ledger. It tolerates duplicate and
// out-of-order deliveries: redelivering any event, in any interleaving,
// converges on one "paid" (or later) booking and exactly one earnings record.
type Reconciler struct {
	Bookings bookingRepo.BookingRepository
	Earnings earningsRepo.EarningsRepository
	Fees     FeePolicy
	Logger   *zap.Logger
}

func NewReconciler(bookings bookingRepo.BookingRepository, earnings earningsRepo.EarningsRepository, fees FeePolicy, logger *zap.Logger) *Reconciler {
	return &Reconciler{Bookings: bookings, Earnings: earnings, Fees: fees, Logger: logger}
}

// Reconcile processes one verified event. Lost optimistic-update races are
// retried with a fresh read; statuses only move forward, so a few attempts
// always converge.
func (rc *Reconciler) Reconcile(ctx context.Context, evt models.PaymentEvent) (ReconcileResult, error) {
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		booking, err := rc.resolveBooking(ctx, evt)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			// The charge may belong to another flow, or the booking does not
			// exist yet because of a race. Never an error: acknowledge.
			rc.Logger.Info("payment event did not resolve to a booking",
				zap.String("eventId", evt.EventID),
				zap.String("paymentReference", evt.PaymentReference))
			return ReconcileResult{Outcome: OutcomeNoOp, Detail: "no booking resolved"}, nil
		}
		if err != nil {
			return ReconcileResult{}, &TransientError{Op: "resolve booking", Err: err}
		}

		if IsSettledOrLater(booking.Status) {
			return rc.handleSettled(ctx, booking, evt)
		}

		switch evt.Kind {
		case models.EventPaymentFailed:
			return rc.handleFailed(ctx, booking, evt)
		case models.EventPaymentSucceeded, models.EventSessionCompleted:
			result, err := rc.handleSucceeded(ctx, booking, evt)
			if errors.Is(err, bookingRepo.ErrStaleStatus) {
				continue // lost the race, re-read and re-evaluate
			}
			return result, err
		default:
			rc.Logger.Warn("unknown payment event kind",
				zap.String("eventId", evt.EventID),
				zap.String("kind", string(evt.Kind)))
			return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "unknown event kind"}, nil
		}
	}

	return ReconcileResult{}, &TransientError{Op: "reconcile", Err: errors.New("retries exhausted on concurrent updates")}
}

// resolveBooking prefers the booking id carried in event metadata, falling
// back to the paymentReference secondary index.
func (rc *Reconciler) resolveBooking(ctx context.Context, evt models.PaymentEvent) (*models.Booking, error) {
	if evt.MetadataBookingID != "" {
		booking, err := rc.Bookings.GetByID(ctx, evt.MetadataBookingID)
		if err == nil || !errors.Is(err, bookingRepo.ErrNotFound) {
			return booking, err
		}
	}
	return rc.Bookings.GetByPaymentReference(ctx, evt.PaymentReference)
}

// handleSettled covers duplicate or superseded deliveries: the booking has
// already been processed, so at most the paymentReference linkage is
// repaired. The earnings ledger is never touched here.
func (rc *Reconciler) handleSettled(ctx context.Context, booking *models.Booking, evt models.PaymentEvent) (ReconcileResult, error) {
	if booking.PaymentReference != evt.PaymentReference {
		if err := rc.Bookings.SetPaymentReference(ctx, booking.ID, evt.PaymentReference); err != nil && !errors.Is(err, bookingRepo.ErrNotFound) {
			return ReconcileResult{}, &TransientError{Op: "repair payment reference", Err: err}
		}
		rc.Logger.Info("repaired payment reference on settled booking",
			zap.String("bookingId", booking.ID),
			zap.String("eventId", evt.EventID))
		return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "payment reference repaired"}, nil
	}
	return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "duplicate delivery"}, nil
}

// handleFailed never moves the booking away from its pre-payment status; it
// only links the charge so future successful events can be matched.
func (rc *Reconciler) handleFailed(ctx context.Context, booking *models.Booking, evt models.PaymentEvent) (ReconcileResult, error) {
	if booking.PaymentReference == "" {
		if err := rc.Bookings.SetPaymentReference(ctx, booking.ID, evt.PaymentReference); err != nil && !errors.Is(err, bookingRepo.ErrNotFound) {
			return ReconcileResult{}, &TransientError{Op: "link payment reference", Err: err}
		}
		return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "payment failed, reference linked"}, nil
	}
	return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "payment failed"}, nil
}

// handleSucceeded advances the booking to paid and creates its earnings
// record. The ledger upsert runs first: it is idempotent on bookingId, so if
// the status write then fails transiently, redelivery completes the pair
// without ever duplicating the record.
func (rc *Reconciler) handleSucceeded(ctx context.Context, booking *models.Booking, evt models.PaymentEvent) (ReconcileResult, error) {
	if err := AssertTransition(booking.Status, models.BookingPaid); err != nil {
		// Business-rule mismatch (e.g. declined before payment settled).
		// Acknowledge; retrying would never change the answer.
		rc.Logger.Warn("payment event rejected by booking lifecycle",
			zap.String("bookingId", booking.ID),
			zap.String("eventId", evt.EventID),
			zap.String("currentStatus", string(booking.Status)),
			zap.Error(err))
		return ReconcileResult{Outcome: OutcomeRejected, BookingID: booking.ID, Detail: err.Error()}, nil
	}

	terms, err := rc.Fees.Resolve(ctx, booking.ProviderID)
	if err != nil {
		return ReconcileResult{}, &TransientError{Op: "resolve fee terms", Err: err}
	}

	amount := booking.ChargedAmount
	if amount == 0 && evt.ChargedAmountHint > 0 {
		amount = evt.ChargedAmountHint
	}
	split := Split(amount, terms.PlatformFeeBps, terms.GSTRateBps, terms.ChargesGST)

	created, err := rc.Earnings.UpsertOnPayment(ctx, models.EarningsRecord{
		BookingID:         booking.ID,
		ProviderID:        booking.ProviderID,
		GrossAmount:       amount,
		PlatformFeeAmount: split.PlatformFee,
		GSTAmount:         split.GST,
		NetAmount:         split.Net,
		Status:            models.EarningsHeld,
		PaymentReference:  evt.PaymentReference,
	})
	if err != nil {
		return ReconcileResult{}, &TransientError{Op: "upsert earnings record", Err: err}
	}

	if err := rc.Bookings.MarkPaid(ctx, booking.ID, booking.Status, evt.PaymentReference); err != nil {
		if errors.Is(err, bookingRepo.ErrStaleStatus) {
			return ReconcileResult{}, err // caller retries with a fresh read
		}
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return ReconcileResult{Outcome: OutcomeNoOp, BookingID: booking.ID, Detail: "booking vanished"}, nil
		}
		return ReconcileResult{}, &TransientError{Op: "mark booking paid", Err: err}
	}

	rc.Logger.Info("payment reconciled",
		zap.String("bookingId", booking.ID),
		zap.String("eventId", evt.EventID),
		zap.Int64("grossAmount", amount),
		zap.Bool("earningsCreated", created))
	return ReconcileResult{Outcome: OutcomeApplied, BookingID: booking.ID, Detail: "booking paid, earnings recorded"}, nil
}
