package payments

import (
	"fmt"

	"verial/models"
)

// ValidationError indicates bad caller input (amount, reason, balance).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates the referenced booking or refund does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IllegalTransitionError indicates a disallowed lifecycle status change.
// It is a recoverable no-op on the webhook path and a caller error on the
// admin path.
type IllegalTransitionError struct {
	Current models.BookingStatus
	Target  models.BookingStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition %q -> %q", e.Current, e.Target)
}

// GatewayError indicates the external payment processor rejected or failed an
// operation. The durable RefundRecord id is carried for follow-up.
type GatewayError struct {
	RefundID string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway failure (refund %s): %v", e.RefundID, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ConcurrencyConflictError indicates a check-then-write sequence lost its
// race; the caller should reload and retry.
type ConcurrencyConflictError struct {
	BookingID string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent update on booking %s, reload and retry", e.BookingID)
}

// TransientError indicates infrastructure failure (store unavailable). On the
// webhook path this is the only error category allowed to request redelivery.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
