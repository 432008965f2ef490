package models

import "time"

// RefundStatus tracks one refund attempt. A record is created as "processing"
// before the gateway is called and finalized afterwards; records are never
// deleted, whatever the outcome.
type RefundStatus string

const (
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

// RefundRecord is the durable audit trail of a single refund attempt.
type RefundRecord struct {
	ID                     string       `bson:"id" json:"id"`
	BookingID              string       `bson:"bookingId" json:"bookingId"`
	Amount                 int64        `bson:"amount" json:"amount"` // minor units
	Reason                 string       `bson:"reason" json:"reason"`
	Description            string       `bson:"description,omitempty" json:"description,omitempty"`
	PlatformFeeRefunded    int64        `bson:"platformFeeRefunded" json:"platformFeeRefunded"`
	ProviderAmountRefunded int64        `bson:"providerAmountRefunded" json:"providerAmountRefunded"`
	Status                 RefundStatus `bson:"status" json:"status"`
	GatewayRefundReference string       `bson:"gatewayRefundReference,omitempty" json:"gatewayRefundReference,omitempty"`
	FailureReason          string       `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	ProcessedBy            string       `bson:"processedBy" json:"processedBy"`
	ProcessedAt            *time.Time   `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt              time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time    `bson:"updatedAt" json:"updatedAt"`
}
