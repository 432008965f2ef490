package payments

import "verial/models"

// transitions is the explicit adjacency table for the booking lifecycle.
// Every status has an entry; terminal statuses map to an empty outbound set.
// The disputed resolution edges (back to completed, or straight to refunded)
// are a product policy choice.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending: {
		models.BookingAccepted,
		models.BookingDeclined,
		models.BookingCanceledCustomer,
	},
	models.BookingAccepted: {
		models.BookingPaid,
		models.BookingCanceledCustomer,
		models.BookingCanceledProvider,
	},
	models.BookingDeclined: {},
	models.BookingPaid: {
		models.BookingCompleted,
		models.BookingCompletedByProvider,
		models.BookingDisputed,
		models.BookingRefunded,
	},
	models.BookingCompleted: {
		models.BookingDisputed,
		models.BookingRefunded,
	},
	models.BookingCompletedByProvider: {
		models.BookingDisputed,
		models.BookingRefunded,
	},
	models.BookingCanceledCustomer: {},
	models.BookingCanceledProvider: {},
	models.BookingDisputed: {
		models.BookingRefunded,
		models.BookingCompleted,
	},
	models.BookingRefunded: {},
}

// settledOrLater marks every status from "paid" onward; the reconciler uses
// it to detect bookings whose payment has already been processed.
var settledOrLater = map[models.BookingStatus]bool{
	models.BookingPaid:                true,
	models.BookingCompleted:           true,
	models.BookingCompletedByProvider: true,
	models.BookingDisputed:            true,
	models.BookingRefunded:            true,
}

var terminal = map[models.BookingStatus]bool{
	models.BookingDeclined:         true,
	models.BookingCanceledCustomer: true,
	models.BookingCanceledProvider: true,
	models.BookingRefunded:         true,
}

// CanTransition reports whether the lifecycle allows moving from current to
// target. It is a pure lookup over the adjacency table.
func CanTransition(current, target models.BookingStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// AssertTransition returns an IllegalTransitionError if the move is not in
// the adjacency table.
func AssertTransition(current, target models.BookingStatus) error {
	if !CanTransition(current, target) {
		return &IllegalTransitionError{Current: current, Target: target}
	}
	return nil
}

// IsSettledOrLater reports whether the booking has reached "paid" or any
// later lifecycle status.
func IsSettledOrLater(status models.BookingStatus) bool {
	return settledOrLater[status]
}

// IsTerminal reports whether the status admits no further transitions. Note
// completed bookings are not terminal: they can still be disputed or refunded.
func IsTerminal(status models.BookingStatus) bool {
	return terminal[status]
}

// OutboundStatuses returns a copy of the allowed targets for a status.
func OutboundStatuses(current models.BookingStatus) []models.BookingStatus {
	out := make([]models.BookingStatus, len(transitions[current]))
	copy(out, transitions[current])
	return out
}

// AllStatuses lists the ten lifecycle statuses in lifecycle order.
func AllStatuses() []models.BookingStatus {
	return []models.BookingStatus{
		models.BookingPending,
		models.BookingAccepted,
		models.BookingDeclined,
		models.BookingPaid,
		models.BookingCompleted,
		models.BookingCompletedByProvider,
		models.BookingCanceledCustomer,
		models.BookingCanceledProvider,
		models.BookingDisputed,
		models.BookingRefunded,
	}
}
