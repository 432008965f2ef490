package models

import "time"

// EarningsStatus tracks a ledger entry through the payout pipeline.
type EarningsStatus string

const (
	EarningsHeld           EarningsStatus = "held"
	EarningsAwaitingPayout EarningsStatus = "awaiting_payout"
	EarningsPaidOut        EarningsStatus = "paid_out"
)

// EarningsRecord is the per-booking split of a captured charge. At most one
// record exists per booking; GrossAmount always equals
// PlatformFeeAmount + GSTAmount + NetAmount exactly.
type EarningsRecord struct {
	ID                string         `bson:"id" json:"id"`
	BookingID         string         `bson:"bookingId" json:"bookingId"`
	ProviderID        string         `bson:"providerId" json:"providerId"`
	GrossAmount       int64          `bson:"grossAmount" json:"grossAmount"`
	PlatformFeeAmount int64          `bson:"platformFeeAmount" json:"platformFeeAmount"`
	GSTAmount         int64          `bson:"gstAmount" json:"gstAmount"`
	NetAmount         int64          `bson:"netAmount" json:"netAmount"`
	Status            EarningsStatus `bson:"status" json:"status"`
	PaymentReference  string         `bson:"paymentReference" json:"paymentReference"`
	TransferReference string         `bson:"transferReference,omitempty" json:"transferReference,omitempty"`
	CreatedAt         time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// ProviderEarningsSummary is the aggregate returned to the payout subsystem.
type ProviderEarningsSummary struct {
	ProviderID     string `bson:"_id" json:"providerId"`
	TotalNetAmount int64  `bson:"totalNetAmount" json:"totalNetAmount"`
	RecordCount    int64  `bson:"recordCount" json:"recordCount"`
}
