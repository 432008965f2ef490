package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "verial/database/repository/booking"
	earningsRepo "verial/database/repository/earnings"
	refundRepo "verial/database/repository/refund"
	"verial/models"
)

// In-memory implementations of the repository and gateway interfaces, with
// the same sentinel behavior as the Mongo implementations.

type fakeBookingRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.Booking
	loadErr error
	saveErr error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byID: make(map[string]*models.Booking)}
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	clone := *booking
	r.byID[booking.ID] = &clone
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	booking, ok := r.byID[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (r *fakeBookingRepo) GetByPaymentReference(_ context.Context, ref string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	for _, booking := range r.byID {
		if booking.PaymentReference == ref {
			clone := *booking
			return &clone, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *fakeBookingRepo) UpdateStatusIf(_ context.Context, id string, from, to models.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	booking, ok := r.byID[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if booking.Status != from {
		return bookingRepo.ErrStaleStatus
	}
	booking.Status = to
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBookingRepo) MarkPaid(_ context.Context, id string, from models.BookingStatus, paymentRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	booking, ok := r.byID[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if booking.Status != from {
		return bookingRepo.ErrStaleStatus
	}
	booking.Status = models.BookingPaid
	booking.PaymentReference = paymentRef
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBookingRepo) SetPaymentReference(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	booking, ok := r.byID[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	booking.PaymentReference = ref
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBookingRepo) status(id string) models.BookingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Status
}

type fakeEarningsRepo struct {
	mu        sync.Mutex
	byBooking map[string]*models.EarningsRecord
	upsertErr error
}

func newFakeEarningsRepo() *fakeEarningsRepo {
	return &fakeEarningsRepo{byBooking: make(map[string]*models.EarningsRecord)}
}

func (r *fakeEarningsRepo) UpsertOnPayment(_ context.Context, record models.EarningsRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return false, r.upsertErr
	}
	if _, ok := r.byBooking[record.BookingID]; ok {
		return false, nil
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	r.byBooking[record.BookingID] = &record
	return true, nil
}

func (r *fakeEarningsRepo) GetByBookingID(_ context.Context, bookingID string) (*models.EarningsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byBooking[bookingID]
	if !ok {
		return nil, earningsRepo.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *fakeEarningsRepo) SummarizeByProvider(_ context.Context, providerID string, status models.EarningsStatus) (*models.ProviderEarningsSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &models.ProviderEarningsSummary{ProviderID: providerID}
	for _, record := range r.byBooking {
		if record.ProviderID == providerID && record.Status == status {
			summary.TotalNetAmount += record.NetAmount
			summary.RecordCount++
		}
	}
	return summary, nil
}

func (r *fakeEarningsRepo) UpdateStatus(_ context.Context, bookingID string, from, to models.EarningsStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byBooking[bookingID]
	if !ok {
		return earningsRepo.ErrNotFound
	}
	if record.Status != from {
		return earningsRepo.ErrStaleStatus
	}
	record.Status = to
	return nil
}

func (r *fakeEarningsRepo) SetTransferReference(_ context.Context, bookingID, transferRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byBooking[bookingID]
	if !ok {
		return earningsRepo.ErrNotFound
	}
	record.TransferReference = transferRef
	return nil
}

func (r *fakeEarningsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byBooking)
}

type fakeRefundRepo struct {
	mu       sync.Mutex
	records  []*models.RefundRecord
	claimErr error
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{}
}

// Claim serializes under one mutex, mirroring the production transaction's
// write on the booking document that forces concurrent claims to conflict.
func (r *fakeRefundRepo) Claim(_ context.Context, booking *models.Booking, record *models.RefundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimErr != nil {
		return r.claimErr
	}

	var reserved int64
	for _, existing := range r.records {
		if existing.BookingID == booking.ID &&
			(existing.Status == models.RefundCompleted || existing.Status == models.RefundProcessing) {
			reserved += existing.Amount
		}
	}
	if record.Amount > booking.ChargedAmount-reserved {
		return refundRepo.ErrBalanceExceeded
	}

	now := time.Now()
	record.Status = models.RefundProcessing
	record.CreatedAt = now
	record.UpdatedAt = now
	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *fakeRefundRepo) SetGatewayReference(_ context.Context, id, gatewayRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.find(id)
	if record == nil {
		return refundRepo.ErrNotFound
	}
	if record.Status != models.RefundProcessing {
		return refundRepo.ErrAlreadyFinalized
	}
	record.GatewayRefundReference = gatewayRef
	record.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRefundRepo) FinalizeCompleted(_ context.Context, id, gatewayRef string, feeRefunded, providerRefunded int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.find(id)
	if record == nil {
		return refundRepo.ErrNotFound
	}
	if record.Status != models.RefundProcessing {
		return refundRepo.ErrAlreadyFinalized
	}
	now := time.Now()
	record.Status = models.RefundCompleted
	record.GatewayRefundReference = gatewayRef
	record.PlatformFeeRefunded = feeRefunded
	record.ProviderAmountRefunded = providerRefunded
	record.ProcessedAt = &now
	return nil
}

func (r *fakeRefundRepo) FinalizeFailed(_ context.Context, id, failureReason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.find(id)
	if record == nil {
		return refundRepo.ErrNotFound
	}
	if record.Status != models.RefundProcessing {
		return refundRepo.ErrAlreadyFinalized
	}
	now := time.Now()
	record.Status = models.RefundFailed
	record.FailureReason = failureReason
	record.ProcessedAt = &now
	return nil
}

func (r *fakeRefundRepo) GetByID(_ context.Context, id string) (*models.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.find(id)
	if record == nil {
		return nil, refundRepo.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *fakeRefundRepo) ListByBooking(_ context.Context, bookingID string) ([]models.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RefundRecord
	for _, record := range r.records {
		if record.BookingID == bookingID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) SumCompleted(_ context.Context, bookingID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, record := range r.records {
		if record.BookingID == bookingID && record.Status == models.RefundCompleted {
			total += record.Amount
		}
	}
	return total, nil
}

func (r *fakeRefundRepo) FindStuckProcessing(_ context.Context, olderThan time.Duration) ([]models.RefundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []models.RefundRecord
	for _, record := range r.records {
		if record.Status == models.RefundProcessing && record.CreatedAt.Before(cutoff) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) find(id string) *models.RefundRecord {
	for _, record := range r.records {
		if record.ID == id {
			return record
		}
	}
	return nil
}

func (r *fakeRefundRepo) backdate(id string, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record := r.find(id); record != nil {
		record.CreatedAt = time.Now().Add(-age)
	}
}

// fakeGateway replays results by idempotency key, the way the real processor
// collapses retried requests.
type fakeGateway struct {
	mu         sync.Mutex
	byKey      map[string]*GatewayRefundResult
	byRef      map[string]*GatewayRefundResult
	nextStatus GatewayRefundStatus
	callErr    error
	calls      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		byKey:      make(map[string]*GatewayRefundResult),
		byRef:      make(map[string]*GatewayRefundResult),
		nextStatus: GatewayRefundSucceeded,
	}
}

func (g *fakeGateway) CreateRefund(_ context.Context, req GatewayRefundRequest) (*GatewayRefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.callErr != nil {
		return nil, g.callErr
	}
	if existing, ok := g.byKey[req.IdempotencyKey]; ok {
		clone := *existing
		return &clone, nil
	}
	result := &GatewayRefundResult{
		Reference: fmt.Sprintf("re_%d", len(g.byKey)+1),
		Status:    g.nextStatus,
	}
	if result.Status == GatewayRefundFailed {
		result.FailureReason = "charge_disputed"
	}
	g.byKey[req.IdempotencyKey] = result
	g.byRef[result.Reference] = result
	clone := *result
	return &clone, nil
}

func (g *fakeGateway) GetRefund(_ context.Context, gatewayRef string) (*GatewayRefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.callErr != nil {
		return nil, g.callErr
	}
	result, ok := g.byRef[gatewayRef]
	if !ok {
		return nil, fmt.Errorf("no such refund %s", gatewayRef)
	}
	clone := *result
	return &clone, nil
}

func (g *fakeGateway) settle(reference string, status GatewayRefundStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if result, ok := g.byRef[reference]; ok {
		result.Status = status
	}
}
