package payments

import (
	"errors"
	"testing"

	"verial/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionAdjacency(t *testing.T) {
	allowed := map[models.BookingStatus]map[models.BookingStatus]bool{
		models.BookingPending: {
			models.BookingAccepted:         true,
			models.BookingDeclined:         true,
			models.BookingCanceledCustomer: true,
		},
		models.BookingAccepted: {
			models.BookingPaid:             true,
			models.BookingCanceledCustomer: true,
			models.BookingCanceledProvider: true,
		},
		models.BookingPaid: {
			models.BookingCompleted:           true,
			models.BookingCompletedByProvider: true,
			models.BookingDisputed:            true,
			models.BookingRefunded:            true,
		},
		models.BookingCompleted: {
			models.BookingDisputed: true,
			models.BookingRefunded: true,
		},
		models.BookingCompletedByProvider: {
			models.BookingDisputed: true,
			models.BookingRefunded: true,
		},
		models.BookingDisputed: {
			models.BookingRefunded:  true,
			models.BookingCompleted: true,
		},
		models.BookingDeclined:         {},
		models.BookingCanceledCustomer: {},
		models.BookingCanceledProvider: {},
		models.BookingRefunded:         {},
	}

	statuses := AllStatuses()
	require.Len(t, statuses, len(allowed))

	for _, from := range statuses {
		for _, to := range statuses {
			got := CanTransition(from, to)
			want := allowed[from][to]
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionRejectsSelfAndUnknown(t *testing.T) {
	for _, status := range AllStatuses() {
		assert.False(t, CanTransition(status, status), "self loop on %s", status)
	}
	assert.False(t, CanTransition("bogus", models.BookingPaid))
	assert.False(t, CanTransition(models.BookingPending, "bogus"))
}

func TestAssertTransition(t *testing.T) {
	assert.NoError(t, AssertTransition(models.BookingPending, models.BookingAccepted))

	err := AssertTransition(models.BookingDeclined, models.BookingPaid)
	require.Error(t, err)
	var illegal *IllegalTransitionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, models.BookingDeclined, illegal.Current)
	assert.Equal(t, models.BookingPaid, illegal.Target)
}

func TestIsSettledOrLater(t *testing.T) {
	settled := []models.BookingStatus{
		models.BookingPaid,
		models.BookingCompleted,
		models.BookingCompletedByProvider,
		models.BookingDisputed,
		models.BookingRefunded,
	}
	for _, status := range settled {
		assert.True(t, IsSettledOrLater(status), "%s", status)
	}

	notSettled := []models.BookingStatus{
		models.BookingPending,
		models.BookingAccepted,
		models.BookingDeclined,
		models.BookingCanceledCustomer,
		models.BookingCanceledProvider,
	}
	for _, status := range notSettled {
		assert.False(t, IsSettledOrLater(status), "%s", status)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range AllStatuses() {
		assert.Equal(t, len(OutboundStatuses(status)) == 0, IsTerminal(status), "%s", status)
	}
}
