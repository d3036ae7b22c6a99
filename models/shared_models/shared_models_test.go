package shared_models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStateMachine(t *testing.T) {
	allowed := []struct{ from, to string }{
		{BookingStatusPending, BookingStatusConfirmed},
		{BookingStatusPending, BookingStatusCancelled},
		{BookingStatusConfirmed, BookingStatusCancelled},
		{BookingStatusConfirmed, BookingStatusCompleted},
		{BookingStatusConfirmed, BookingStatusNoShow},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransitionBooking(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{BookingStatusPending, BookingStatusCompleted},
		{BookingStatusPending, BookingStatusNoShow},
		{BookingStatusCancelled, BookingStatusConfirmed},
		{BookingStatusCancelled, BookingStatusPending},
		{BookingStatusCompleted, BookingStatusCancelled},
		{BookingStatusNoShow, BookingStatusConfirmed},
		{BookingStatusConfirmed, BookingStatusPending},
	}
	for _, tc := range denied {
		assert.False(t, CanTransitionBooking(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestPaymentStateMachine(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusSuccess))
	assert.True(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusFailed))
	assert.True(t, CanTransitionPayment(PaymentStatusSuccess, PaymentStatusRefunded))

	assert.False(t, CanTransitionPayment(PaymentStatusFailed, PaymentStatusSuccess))
	assert.False(t, CanTransitionPayment(PaymentStatusSuccess, PaymentStatusPending))
	assert.False(t, CanTransitionPayment(PaymentStatusRefunded, PaymentStatusSuccess))
	assert.False(t, CanTransitionPayment(PaymentStatusPending, PaymentStatusRefunded))
}

func TestIsBookingLive(t *testing.T) {
	assert.True(t, IsBookingLive(BookingStatusPending))
	assert.True(t, IsBookingLive(BookingStatusConfirmed))
	assert.False(t, IsBookingLive(BookingStatusCancelled))
	assert.False(t, IsBookingLive(BookingStatusCompleted))
	assert.False(t, IsBookingLive(BookingStatusNoShow))
}

func TestIsValidPurpose(t *testing.T) {
	for _, p := range []string{PurposePlatformFee, PurposeServiceFee, PurposeRegistrationFee, PurposeRefund} {
		assert.True(t, IsValidPurpose(p))
	}
	assert.False(t, IsValidPurpose("tip"))
	assert.False(t, IsValidPurpose(""))
}

func TestGenerateUUIDv7(t *testing.T) {
	id, err := GenerateUUIDv7()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}
