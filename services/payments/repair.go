package payments

import (
	"context"
	"errors"
	"time"

	bookingRepo "verial/database/repository/booking"
	refundRepo "verial/database/repository/refund"
	"verial/models"

	"go.uber.org/zap"
)

// RefundRepairer is the operational companion to the refund processor: a
// gateway timeout leaves a RefundRecord in "processing", which is a safe,
// resumable state. The repairer periodically queries the gateway for the
// terminal outcome and applies the same finalize path as the synchronous
// flow.
type RefundRepairer struct {
	Bookings bookingRepo.BookingRepository
	Refunds  refundRepo.RefundRepository
	Gateway  RefundGateway
	Fees     FeePolicy
	Logger   *zap.Logger
}

func NewRefundRepairer(bookings bookingRepo.BookingRepository, refunds refundRepo.RefundRepository, gateway RefundGateway, fees FeePolicy, logger *zap.Logger) *RefundRepairer {
	return &RefundRepairer{Bookings: bookings, Refunds: refunds, Gateway: gateway, Fees: fees, Logger: logger}
}

// RepairStuck finalizes "processing" refunds older than the threshold.
// Returns how many records were repaired.
func (r *RefundRepairer) RepairStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := r.Refunds.FindStuckProcessing(ctx, olderThan)
	if err != nil {
		return 0, &TransientError{Op: "scan stuck refunds", Err: err}
	}

	repaired := 0
	for _, rec := range records {
		finalized, err := r.repairOne(ctx, rec)
		if err != nil {
			r.Logger.Warn("stuck refund left for next pass",
				zap.String("refundId", rec.ID), zap.Error(err))
			continue
		}
		if finalized {
			repaired++
		}
	}
	return repaired, nil
}

// repairOne reports whether the record reached a terminal status.
func (r *RefundRepairer) repairOne(ctx context.Context, rec models.RefundRecord) (bool, error) {
	booking, err := r.Bookings.GetByID(ctx, rec.BookingID)
	if err != nil {
		return false, err
	}

	var res *GatewayRefundResult
	if rec.GatewayRefundReference != "" {
		res, err = r.Gateway.GetRefund(ctx, rec.GatewayRefundReference)
	} else {
		// The original create may never have reached the processor. Reissuing
		// with the same deterministic idempotency key either replays the
		// stored answer or performs the refund once.
		res, err = r.Gateway.CreateRefund(ctx, GatewayRefundRequest{
			PaymentReference: booking.PaymentReference,
			Amount:           rec.Amount,
			IdempotencyKey:   RefundIdempotencyKey(rec.BookingID, rec.Amount, rec.ID),
			BookingID:        rec.BookingID,
			Reason:           rec.Reason,
		})
	}
	if err != nil {
		return false, err
	}

	switch res.Status {
	case GatewayRefundSucceeded:
		terms, err := r.Fees.Resolve(ctx, booking.ProviderID)
		if err != nil {
			return false, err
		}
		split := Split(rec.Amount, terms.PlatformFeeBps, terms.GSTRateBps, terms.ChargesGST)
		err = r.Refunds.FinalizeCompleted(ctx, rec.ID, res.Reference, split.PlatformFee, split.Net)
		if err != nil && !errors.Is(err, refundRepo.ErrAlreadyFinalized) {
			return false, err
		}
		r.Logger.Info("repaired stuck refund to completed",
			zap.String("refundId", rec.ID), zap.String("bookingId", rec.BookingID))

		return true, settleBookingIfFullyRefunded(ctx, r.Bookings, r.Refunds, r.Logger, booking.ID, booking.ChargedAmount)

	case GatewayRefundFailed:
		reason := res.FailureReason
		if reason == "" {
			reason = "gateway reported refund failed"
		}
		err = r.Refunds.FinalizeFailed(ctx, rec.ID, reason)
		if err != nil && !errors.Is(err, refundRepo.ErrAlreadyFinalized) {
			return false, err
		}
		r.Logger.Info("repaired stuck refund to failed",
			zap.String("refundId", rec.ID), zap.String("reason", reason))
		return true, nil

	default:
		// Still pending at the gateway; a later pass will pick it up. If the
		// reference was only just learned, persist it so that pass polls the
		// gateway instead of re-creating.
		if rec.GatewayRefundReference == "" && res.Reference != "" {
			if err := r.Refunds.SetGatewayReference(ctx, rec.ID, res.Reference); err != nil && !errors.Is(err, refundRepo.ErrAlreadyFinalized) {
				return false, err
			}
		}
		return false, nil
	}
}
