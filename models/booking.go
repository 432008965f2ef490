package models

import "time"

// BookingStatus is the single source of truth for a booking's lifecycle state.
type BookingStatus string

const (
	BookingPending             BookingStatus = "pending"
	BookingAccepted            BookingStatus = "accepted"
	BookingDeclined            BookingStatus = "declined"
	BookingPaid                BookingStatus = "paid"
	BookingCompleted           BookingStatus = "completed"
	BookingCompletedByProvider BookingStatus = "completed_by_provider"
	BookingCanceledCustomer    BookingStatus = "canceled_customer"
	BookingCanceledProvider    BookingStatus = "canceled_provider"
	BookingDisputed            BookingStatus = "disputed"
	BookingRefunded            BookingStatus = "refunded"
)

// Booking represents a customer's request for a provider's service.
// ChargedAmount is in minor units and immutable once set. PaymentReference
// correlates the booking with the processor's charge; it is set when the
// booking first reaches "paid", or repaired from a late webhook.
// RefundClaimVersion is bumped inside every refund claim transaction so that
// concurrent claims on the same booking write-conflict instead of both
// committing.
type Booking struct {
	ID                 string        `bson:"id" json:"id"`
	CustomerID         string        `bson:"customerId" json:"customerId"`
	ProviderID         string        `bson:"providerId" json:"providerId"`
	ServiceID          string        `bson:"serviceId" json:"serviceId"`
	Status             BookingStatus `bson:"status" json:"status"`
	ChargedAmount      int64         `bson:"chargedAmount" json:"chargedAmount"` // minor units
	Currency           string        `bson:"currency" json:"currency"`
	PaymentReference   string        `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	RefundClaimVersion int64         `bson:"refundClaimVersion,omitempty" json:"-"`
	CreatedAt          time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updatedAt" json:"updatedAt"`
}
