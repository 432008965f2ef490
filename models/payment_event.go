package models

// PaymentEventKind enumerates the processor notifications this subsystem
// consumes. Signature verification happens upstream; only verified events
// reach the reconciler.
type PaymentEventKind string

const (
	EventSessionCompleted PaymentEventKind = "session_completed"
	EventPaymentSucceeded PaymentEventKind = "payment_succeeded"
	EventPaymentFailed    PaymentEventKind = "payment_failed"
)

// PaymentEvent is a verified payment-processor notification.
type PaymentEvent struct {
	EventID           string           `json:"eventId" binding:"required"`
	Kind              PaymentEventKind `json:"kind" binding:"required"`
	PaymentReference  string           `json:"paymentReference" binding:"required"`
	MetadataBookingID string           `json:"metadataBookingId,omitempty"`
	ChargedAmountHint int64            `json:"chargedAmountHint,omitempty"`
}
