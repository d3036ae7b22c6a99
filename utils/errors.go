// utils/errors.go
package utils

import "errors"

var (
	ErrUserIDNotFound = errors.New("authentication required: user ID not found")
	ErrUnauthorized   = errors.New("unauthorized access")

	// ErrValidation covers malformed input rejected before any write.
	ErrValidation = errors.New("validation failed")

	// ErrSlotConflict is returned when another live booking already holds
	// the same (salon, date, time) slot. Surfaced to the customer as
	// "slot no longer available", never retried silently.
	ErrSlotConflict = errors.New("slot is no longer available")

	// ErrDuplicatePayment is returned when a payment of the same purpose
	// already exists for the booking.
	ErrDuplicatePayment = errors.New("a payment of this purpose already exists for the booking")

	// ErrGatewayVerification is returned when the gateway signature does
	// not verify. The payment is marked failed; the booking stays pending.
	ErrGatewayVerification = errors.New("payment verification failed - please retry payment")

	// ErrPaymentAlreadyFailed is returned when a callback arrives for a
	// payment that already failed; the customer must initiate a new payment.
	ErrPaymentAlreadyFailed = errors.New("payment already failed - initiate a new payment")

	// ErrInconsistentState marks a cross-entity invariant violation that
	// must be escalated for manual reconciliation, never auto-corrected.
	ErrInconsistentState = errors.New("inconsistent payment/booking state")

	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
)
