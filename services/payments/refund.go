package payments

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "verial/database/repository/booking"
	refundRepo "verial/database/repository/refund"
	"verial/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundCommand is the admin-initiated refund request. Every field an
// operation may change is named here; there are no dynamic patch objects.
type RefundCommand struct {
	BookingID   string
	Amount      int64
	Reason      string
	Description string
	AdminID     string
}

// RefundResult is returned on a successful (or still pending) refund.
type RefundResult struct {
	RefundID               string
	GatewayRefundReference string
	Amount                 int64
	Status                 models.RefundStatus
}

// refundableStatuses are the booking states an admin may refund from.
// Disputed bookings settle through dispute resolution, not a direct refund
// request; the lifecycle still allows disputed -> refunded when the ledger
// fully refunds mid-dispute.
var refundableStatuses = map[models.BookingStatus]bool{
	models.BookingPaid:                true,
	models.BookingCompleted:           true,
	models.BookingCompletedByProvider: true,
}

// RefundProcessor validates and executes admin refunds. The flow is
// claim -> gateway -> finalize: the durable "processing" RefundRecord written
// by the claim is what serializes concurrent attempts, and no store lock is
// ever held across the gateway call.
type RefundProcessor struct {
	Bookings bookingRepo.BookingRepository
	Refunds  refundRepo.RefundRepository
	Gateway  RefundGateway
	Fees     FeePolicy
	Logger   *zap.Logger
}

func NewRefundProcessor(bookings bookingRepo.BookingRepository, refunds refundRepo.RefundRepository, gateway RefundGateway, fees FeePolicy, logger *zap.Logger) *RefundProcessor {
	return &RefundProcessor{Bookings: bookings, Refunds: refunds, Gateway: gateway, Fees: fees, Logger: logger}
}

// ProcessRefund executes one refund attempt end to end.
func (p *RefundProcessor) ProcessRefund(ctx context.Context, cmd RefundCommand) (*RefundResult, error) {
	if cmd.Amount <= 0 {
		return nil, NewValidationError("refund amount must be positive, got %d", cmd.Amount)
	}
	if cmd.Reason == "" {
		return nil, NewValidationError("refund reason is required")
	}
	if cmd.AdminID == "" {
		return nil, NewValidationError("processing admin id is required")
	}

	booking, err := p.Bookings.GetByID(ctx, cmd.BookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "booking", ID: cmd.BookingID}
	}
	if err != nil {
		return nil, &TransientError{Op: "load booking", Err: err}
	}

	if booking.PaymentReference == "" {
		return nil, NewValidationError("booking %s has no captured payment to refund", booking.ID)
	}
	if !refundableStatuses[booking.Status] {
		return nil, NewValidationError("booking %s is not refundable in status %q", booking.ID, booking.Status)
	}
	if cmd.Amount > booking.ChargedAmount {
		return nil, NewValidationError("refund of %d exceeds charged amount %d", cmd.Amount, booking.ChargedAmount)
	}

	terms, err := p.Fees.Resolve(ctx, booking.ProviderID)
	if err != nil {
		return nil, &TransientError{Op: "resolve fee terms", Err: err}
	}

	// Durable claim: balance re-check + "processing" row in one atomic step.
	record := &models.RefundRecord{
		ID:          uuid.New().String(),
		BookingID:   booking.ID,
		Amount:      cmd.Amount,
		Reason:      cmd.Reason,
		Description: cmd.Description,
		ProcessedBy: cmd.AdminID,
	}
	if err := p.Refunds.Claim(ctx, booking, record); err != nil {
		switch {
		case errors.Is(err, refundRepo.ErrBalanceExceeded):
			return nil, NewValidationError("refund of %d exceeds remaining refundable balance on booking %s", cmd.Amount, booking.ID)
		case errors.Is(err, refundRepo.ErrClaimConflict):
			return nil, &ConcurrencyConflictError{BookingID: booking.ID}
		default:
			return nil, &TransientError{Op: "claim refund", Err: err}
		}
	}

	res, gerr := p.Gateway.CreateRefund(ctx, GatewayRefundRequest{
		PaymentReference: booking.PaymentReference,
		Amount:           cmd.Amount,
		IdempotencyKey:   RefundIdempotencyKey(booking.ID, cmd.Amount, record.ID),
		BookingID:        booking.ID,
		Reason:           cmd.Reason,
	})
	if gerr != nil || res.Status == GatewayRefundFailed {
		reason := "gateway refused refund"
		if gerr != nil {
			reason = gerr.Error()
		} else if res.FailureReason != "" {
			reason = res.FailureReason
		}
		if ferr := p.Refunds.FinalizeFailed(ctx, record.ID, reason); ferr != nil {
			p.Logger.Error("failed to persist failed refund outcome",
				zap.String("refundId", record.ID), zap.Error(ferr))
		}
		p.Logger.Warn("refund rejected by gateway",
			zap.String("bookingId", booking.ID),
			zap.String("refundId", record.ID),
			zap.String("reason", reason))
		return nil, &GatewayError{RefundID: record.ID, Err: fmt.Errorf("%s", reason)}
	}

	if res.Status == GatewayRefundPending {
		// Asynchronous settlement: the record stays "processing" and the
		// reconciliation worker finalizes it from the gateway's terminal
		// status. The gateway reference must be persisted now so that worker
		// polls this refund instead of re-creating it after the idempotency
		// key expires.
		if err := p.Refunds.SetGatewayReference(ctx, record.ID, res.Reference); err != nil {
			p.Logger.Error("failed to link gateway reference on pending refund",
				zap.String("refundId", record.ID),
				zap.String("gatewayRef", res.Reference),
				zap.Error(err))
		}
		return &RefundResult{
			RefundID:               record.ID,
			GatewayRefundReference: res.Reference,
			Amount:                 cmd.Amount,
			Status:                 models.RefundProcessing,
		}, nil
	}

	split := Split(cmd.Amount, terms.PlatformFeeBps, terms.GSTRateBps, terms.ChargesGST)
	if err := p.Refunds.FinalizeCompleted(ctx, record.ID, res.Reference, split.PlatformFee, split.Net); err != nil {
		return nil, &TransientError{Op: "finalize refund", Err: err}
	}

	if err := settleBookingIfFullyRefunded(ctx, p.Bookings, p.Refunds, p.Logger, booking.ID, booking.ChargedAmount); err != nil {
		return nil, err
	}

	p.Logger.Info("refund completed",
		zap.String("bookingId", booking.ID),
		zap.String("refundId", record.ID),
		zap.Int64("amount", cmd.Amount),
		zap.String("gatewayRef", res.Reference))
	return &RefundResult{
		RefundID:               record.ID,
		GatewayRefundReference: res.Reference,
		Amount:                 cmd.Amount,
		Status:                 models.RefundCompleted,
	}, nil
}

// settleBookingIfFullyRefunded transitions the booking to "refunded" once
// cumulative completed refunds reach the full charged amount. Partial refunds
// leave the booking status alone. Shared by the synchronous refund flow and
// the stuck-refund repairer.
func settleBookingIfFullyRefunded(ctx context.Context, bookings bookingRepo.BookingRepository, refunds refundRepo.RefundRepository, logger *zap.Logger, bookingID string, chargedAmount int64) error {
	refunded, err := refunds.SumCompleted(ctx, bookingID)
	if err != nil {
		return &TransientError{Op: "sum completed refunds", Err: err}
	}
	if refunded < chargedAmount {
		return nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		booking, err := bookings.GetByID(ctx, bookingID)
		if err != nil {
			return &TransientError{Op: "reload booking", Err: err}
		}
		if booking.Status == models.BookingRefunded {
			return nil
		}
		if err := AssertTransition(booking.Status, models.BookingRefunded); err != nil {
			// Ledger says fully refunded, lifecycle disagrees; keep the money
			// trail and surface the state for operators instead of forcing it.
			logger.Warn("fully refunded booking cannot transition to refunded",
				zap.String("bookingId", bookingID),
				zap.String("currentStatus", string(booking.Status)))
			return nil
		}
		err = bookings.UpdateStatusIf(ctx, bookingID, booking.Status, models.BookingRefunded)
		if errors.Is(err, bookingRepo.ErrStaleStatus) {
			continue
		}
		if err != nil {
			return &TransientError{Op: "mark booking refunded", Err: err}
		}
		return nil
	}
	return &ConcurrencyConflictError{BookingID: bookingID}
}
