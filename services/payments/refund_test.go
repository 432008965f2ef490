package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	refundRepo "verial/database/repository/refund"
	"verial/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type refundHarness struct {
	processor *RefundProcessor
	bookings  *fakeBookingRepo
	refunds   *fakeRefundRepo
	gateway   *fakeGateway
}

func newRefundHarness(t *testing.T) *refundHarness {
	t.Helper()
	h := &refundHarness{
		bookings: newFakeBookingRepo(),
		refunds:  newFakeRefundRepo(),
		gateway:  newFakeGateway(),
	}
	h.processor = NewRefundProcessor(h.bookings, h.refunds, h.gateway, testFeePolicy(), zap.NewNop())
	return h
}

func (h *refundHarness) seedPaidBooking(t *testing.T, amount int64) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:               "bk-1",
		CustomerID:       "cust-1",
		ProviderID:       "prov-1",
		ServiceID:        "svc-1",
		Status:           models.BookingPaid,
		ChargedAmount:    amount,
		Currency:         "nzd",
		PaymentReference: "pi_123",
	}
	require.NoError(t, h.bookings.Create(context.Background(), booking))
	return booking
}

func refundCmd(amount int64) RefundCommand {
	return RefundCommand{
		BookingID: "bk-1",
		Amount:    amount,
		Reason:    "requested_by_customer",
		AdminID:   "admin-1",
	}
}

// Full-lifecycle walkthrough: a 10000 charge at a 10% platform fee, refunded
// in two halves. Each half prorates the fee/provider split, the booking stays
// in its current status after the first half and settles to refunded once the
// ledger reaches the full charge.
func TestProcessRefundPartialThenFull(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)

	first, err := h.processor.ProcessRefund(context.Background(), refundCmd(5000))
	require.NoError(t, err)
	assert.Equal(t, models.RefundCompleted, first.Status)
	assert.Equal(t, int64(5000), first.Amount)
	assert.NotEmpty(t, first.GatewayRefundReference)

	record, err := h.refunds.GetByID(context.Background(), first.RefundID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), record.PlatformFeeRefunded)
	assert.Equal(t, int64(4500), record.ProviderAmountRefunded)
	require.NotNil(t, record.ProcessedAt)

	// Partial refund leaves the booking status untouched.
	assert.Equal(t, models.BookingPaid, h.bookings.status("bk-1"))

	second, err := h.processor.ProcessRefund(context.Background(), refundCmd(5000))
	require.NoError(t, err)
	assert.Equal(t, models.RefundCompleted, second.Status)

	assert.Equal(t, models.BookingRefunded, h.bookings.status("bk-1"))

	total, err := h.refunds.SumCompleted(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
}

func TestProcessRefundValidation(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)

	cases := []struct {
		name string
		cmd  RefundCommand
	}{
		{"zero amount", RefundCommand{BookingID: "bk-1", Amount: 0, Reason: "r", AdminID: "a"}},
		{"negative amount", RefundCommand{BookingID: "bk-1", Amount: -100, Reason: "r", AdminID: "a"}},
		{"missing reason", RefundCommand{BookingID: "bk-1", Amount: 100, AdminID: "a"}},
		{"missing admin", RefundCommand{BookingID: "bk-1", Amount: 100, Reason: "r"}},
		{"over charged amount", RefundCommand{BookingID: "bk-1", Amount: 10001, Reason: "r", AdminID: "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.processor.ProcessRefund(context.Background(), tc.cmd)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
		})
	}

	// No record and no gateway call for rejected input.
	assert.Equal(t, 0, h.gateway.calls)
	records, err := h.refunds.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessRefundUnknownBooking(t *testing.T) {
	h := newRefundHarness(t)

	_, err := h.processor.ProcessRefund(context.Background(), refundCmd(100))
	var nferr *NotFoundError
	require.True(t, errors.As(err, &nferr))
	assert.Equal(t, "booking", nferr.Resource)
}

func TestProcessRefundRequiresCapturedPayment(t *testing.T) {
	h := newRefundHarness(t)
	booking := h.seedPaidBooking(t, 10000)
	booking.PaymentReference = ""
	h.bookings.byID[booking.ID].PaymentReference = ""

	_, err := h.processor.ProcessRefund(context.Background(), refundCmd(100))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestProcessRefundStatusGate(t *testing.T) {
	refundable := map[models.BookingStatus]bool{
		models.BookingPaid:                true,
		models.BookingCompleted:           true,
		models.BookingCompletedByProvider: true,
	}

	for _, status := range AllStatuses() {
		t.Run(string(status), func(t *testing.T) {
			h := newRefundHarness(t)
			booking := h.seedPaidBooking(t, 10000)
			h.bookings.byID[booking.ID].Status = status

			_, err := h.processor.ProcessRefund(context.Background(), refundCmd(100))
			if refundable[status] {
				assert.NoError(t, err)
			} else {
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "status %s: got %v", status, err)
			}
		})
	}
}

// A second refund may not exceed what the completed ledger leaves over.
func TestProcessRefundBalanceExhaustion(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)

	_, err := h.processor.ProcessRefund(context.Background(), refundCmd(7000))
	require.NoError(t, err)

	_, err = h.processor.ProcessRefund(context.Background(), refundCmd(4000))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	result, err := h.processor.ProcessRefund(context.Background(), refundCmd(3000))
	require.NoError(t, err)
	assert.Equal(t, models.RefundCompleted, result.Status)
	assert.Equal(t, models.BookingRefunded, h.bookings.status("bk-1"))
}

func TestProcessRefundGatewayFailureKeepsRecord(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)
	h.gateway.nextStatus = GatewayRefundFailed

	_, err := h.processor.ProcessRefund(context.Background(), refundCmd(5000))
	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	require.NotEmpty(t, gerr.RefundID)

	record, err := h.refunds.GetByID(context.Background(), gerr.RefundID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundFailed, record.Status)
	assert.Equal(t, "charge_disputed", record.FailureReason)

	// The failed attempt releases the balance for a fresh try.
	h.gateway.nextStatus = GatewayRefundSucceeded
	result, err := h.processor.ProcessRefund(context.Background(), refundCmd(5000))
	require.NoError(t, err)
	assert.Equal(t, models.RefundCompleted, result.Status)
}

func TestProcessRefundPendingGatewayLeavesProcessing(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)
	h.gateway.nextStatus = GatewayRefundPending

	result, err := h.processor.ProcessRefund(context.Background(), refundCmd(10000))
	require.NoError(t, err)
	assert.Equal(t, models.RefundProcessing, result.Status)

	record, err := h.refunds.GetByID(context.Background(), result.RefundID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundProcessing, record.Status)
	assert.Nil(t, record.ProcessedAt)

	// The gateway reference is persisted immediately so the repair pass can
	// poll this refund instead of re-creating it.
	require.NotEmpty(t, result.GatewayRefundReference)
	assert.Equal(t, result.GatewayRefundReference, record.GatewayRefundReference)

	// Full booking settlement waits for the terminal gateway outcome.
	assert.Equal(t, models.BookingPaid, h.bookings.status("bk-1"))
}

// A claim that aborts on a concurrent writer surfaces as a retriable
// conflict, before any gateway call is made.
func TestProcessRefundClaimConflict(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)
	h.refunds.claimErr = refundRepo.ErrClaimConflict

	_, err := h.processor.ProcessRefund(context.Background(), refundCmd(5000))
	var cerr *ConcurrencyConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "bk-1", cerr.BookingID)
	assert.Equal(t, 0, h.gateway.calls)

	records, err := h.refunds.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// Two concurrent refunds whose sum exceeds the charge: the in-flight claim of
// whichever lands first reserves its amount, so exactly one succeeds.
func TestProcessRefundConcurrentClaims(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.processor.ProcessRefund(context.Background(), refundCmd(6000))
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var verr *ValidationError
		var cerr *ConcurrencyConflictError
		require.True(t, errors.As(err, &verr) || errors.As(err, &cerr), "got %v", err)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	total, err := h.refunds.SumCompleted(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), total)
}

func TestProcessRefundFullAmountWithGST(t *testing.T) {
	h := newRefundHarness(t)
	h.seedPaidBooking(t, 10000)
	h.processor.Fees = &StaticFeePolicy{Terms: FeeTerms{PlatformFeeBps: 1000, GSTRateBps: 1500, ChargesGST: true}}

	result, err := h.processor.ProcessRefund(context.Background(), refundCmd(10000))
	require.NoError(t, err)

	record, err := h.refunds.GetByID(context.Background(), result.RefundID)
	require.NoError(t, err)
	// fee 1000, gst 1350, provider net 7650; gst is not booked on the record.
	assert.Equal(t, int64(1000), record.PlatformFeeRefunded)
	assert.Equal(t, int64(7650), record.ProviderAmountRefunded)
	assert.Equal(t, models.BookingRefunded, h.bookings.status("bk-1"))
}
