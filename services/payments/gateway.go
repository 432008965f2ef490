package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/refund"
)

// GatewayRefundStatus is the processor-side state of a refund.
type GatewayRefundStatus string

const (
	GatewayRefundSucceeded GatewayRefundStatus = "succeeded"
	GatewayRefundPending   GatewayRefundStatus = "pending"
	GatewayRefundFailed    GatewayRefundStatus = "failed"
)

// GatewayRefundRequest carries everything the processor needs to execute a
// refund exactly once. The idempotency key is deterministic per attempt, so
// duplicate admin clicks and network retries collapse into one real refund.
type GatewayRefundRequest struct {
	PaymentReference string
	Amount           int64
	IdempotencyKey   string
	BookingID        string
	Reason           string
}

// GatewayRefundResult is the processor's answer.
type GatewayRefundResult struct {
	Reference     string
	Status        GatewayRefundStatus
	FailureReason string
}

// RefundGateway abstracts the payment processor's refund operations.
type RefundGateway interface {
	CreateRefund(ctx context.Context, req GatewayRefundRequest) (*GatewayRefundResult, error)
	GetRefund(ctx context.Context, gatewayRef string) (*GatewayRefundResult, error)
}

// RefundIdempotencyKey derives the deterministic key for one refund attempt.
func RefundIdempotencyKey(bookingID string, amount int64, refundRecordID string) string {
	return fmt.Sprintf("refund:%s:%d:%s", bookingID, amount, refundRecordID)
}

// StripeRefundGateway implements RefundGateway against Stripe. The global
// stripe.Key is set in main. Every call carries a bounded timeout; no caller
// lock is ever held across these operations.
type StripeRefundGateway struct {
	Timeout time.Duration
}

func NewStripeRefundGateway(timeout time.Duration) *StripeRefundGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeRefundGateway{Timeout: timeout}
}

func (g *StripeRefundGateway) CreateRefund(ctx context.Context, req GatewayRefundRequest) (*GatewayRefundResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentReference),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("bookingId", req.BookingID)
	params.AddMetadata("reason", req.Reason)

	res, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund create failed: %w", err)
	}
	return fromStripeRefund(res), nil
}

func (g *StripeRefundGateway) GetRefund(ctx context.Context, gatewayRef string) (*GatewayRefundResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	params := &stripe.RefundParams{}
	params.Context = ctx

	res, err := refund.Get(gatewayRef, params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund lookup failed: %w", err)
	}
	return fromStripeRefund(res), nil
}

func fromStripeRefund(res *stripe.Refund) *GatewayRefundResult {
	out := &GatewayRefundResult{Reference: res.ID}
	switch res.Status {
	case stripe.RefundStatusSucceeded:
		out.Status = GatewayRefundSucceeded
	case stripe.RefundStatusPending, stripe.RefundStatusRequiresAction:
		out.Status = GatewayRefundPending
	default:
		out.Status = GatewayRefundFailed
		out.FailureReason = string(res.FailureReason)
	}
	return out
}
