package shared_models

import (
	"github.com/google/uuid"
)

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
	BookingStatusNoShow    = "no_show"
)

// Payment status constants
const (
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment purpose constants
const (
	PurposePlatformFee     = "platform_fee"
	PurposeServiceFee      = "service_fee"
	PurposeRegistrationFee = "registration_fee"
	PurposeRefund          = "refund"
)

// Payment method constants
const (
	MethodOnline = "online"
	MethodCash   = "cash"
	MethodCard   = "card"
	MethodUPI    = "upi"
)

// Actor roles resolved by the auth middleware.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleRM       = "rm"
	RoleAdmin    = "admin"
)

// Vendor request status constants
const (
	VendorRequestPending  = "pending"
	VendorRequestApproved = "approved"
	VendorRequestRejected = "rejected"
)

// GenerateUUIDv7 generates a new UUIDv7
func GenerateUUIDv7() (uuid.UUID, error) {
	return uuid.NewV7()
}

// bookingTransitions encodes the one-way booking state machine:
// pending -> confirmed -> {completed, no_show}; pending|confirmed -> cancelled.
var bookingTransitions = map[string][]string{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow},
}

// CanTransitionBooking reports whether the booking state machine allows
// moving from one status to another. Terminal states have no exits.
func CanTransitionBooking(from, to string) bool {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// paymentTransitions encodes the payment state machine: a pending payment
// settles to success or failed exactly once; a successful payment may later
// be refunded.
var paymentTransitions = map[string][]string{
	PaymentStatusPending: {PaymentStatusSuccess, PaymentStatusFailed},
	PaymentStatusSuccess: {PaymentStatusRefunded},
}

// CanTransitionPayment reports whether the payment state machine allows
// moving from one status to another.
func CanTransitionPayment(from, to string) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsBookingLive reports whether a booking in the given status still holds
// its slot. Cancelled/completed/no-show bookings release the slot.
func IsBookingLive(status string) bool {
	return status == BookingStatusPending || status == BookingStatusConfirmed
}

// IsValidPurpose reports whether s is a known payment purpose.
func IsValidPurpose(s string) bool {
	switch s {
	case PurposePlatformFee, PurposeServiceFee, PurposeRegistrationFee, PurposeRefund:
		return true
	}
	return false
}
