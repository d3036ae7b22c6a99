package payment_controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joy095/booking/clients"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/payment_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

// PaymentController handles the payment ledger operations. The platform-fee
// success transition is never applied here - only the settlement coordinator
// writes it.
type PaymentController struct {
	DB      *pgxpool.Pool
	Gateway clients.RazorpayClientWrapper
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(db *pgxpool.Pool, gateway clients.RazorpayClientWrapper) *PaymentController {
	return &PaymentController{DB: db, Gateway: gateway}
}

// InitiatePaymentRequest starts an online payment for a booking. Platform
// and service fee amounts are derived server-side from the booking; only
// the registration fee carries an explicit amount.
type InitiatePaymentRequest struct {
	Purpose string `json:"purpose" binding:"required"`
	Amount  int64  `json:"amount"`
}

// InitiateOnlinePayment creates a pending payment and returns the gateway
// order reference the client completes checkout against.
func (pc *PaymentController) InitiateOnlinePayment(c *gin.Context) {
	payerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !shared_models.IsValidPurpose(req.Purpose) || req.Purpose == shared_models.PurposeRefund {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment purpose"})
		return
	}

	ctx := c.Request.Context()
	booking, err := booking_models.GetBookingByID(ctx, pc.DB, bookingID)
	if err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		return
	}

	// Booking-derived fees are priced server-side; only the registration
	// fee carries a caller-supplied amount.
	amount := req.Amount
	switch req.Purpose {
	case shared_models.PurposePlatformFee:
		amount = booking.ConvenienceFee
	case shared_models.PurposeServiceFee:
		amount = booking.ServicePrice
	}
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment amount must be positive"})
		return
	}

	// Friendly pre-check; the unique (booking, purpose) index settles races.
	if existing, err := payment_models.GetPaymentByBookingAndPurpose(ctx, pc.DB, bookingID, req.Purpose); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   utils.ErrDuplicatePayment.Error(),
			"payment": existing,
		})
		return
	} else if !errors.Is(err, utils.ErrPaymentNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check existing payments"})
		return
	}

	payment, err := payment_models.NewPayment(bookingID, payerID, req.Purpose, amount, "INR")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID, err := pc.Gateway.CreateOrder(amount, payment.Currency, booking.Reference, map[string]interface{}{
		"booking_id": bookingID.String(),
		"purpose":    req.Purpose,
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create gateway order for booking %s: %v", bookingID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to initiate payment with gateway"})
		return
	}
	payment.GatewayOrderID = &orderID

	created, err := payment_models.CreatePayment(ctx, pc.DB, payment)
	if err != nil {
		if errors.Is(err, utils.ErrDuplicatePayment) {
			c.JSON(http.StatusConflict, gin.H{"error": utils.ErrDuplicatePayment.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to record payment attempt for booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment attempt"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment_id":       created.ID,
		"gateway_order_id": orderID,
		"amount":           created.Amount,
		"currency":         created.Currency,
	})
}

// VenuePaymentRequest records an at-venue service fee settlement.
type VenuePaymentRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method" binding:"required"`
}

// RecordVenuePayment inserts a successful service-fee payment collected at
// the salon; there is no gateway round trip.
func (pc *PaymentController) RecordVenuePayment(c *gin.Context) {
	if err := utils.RequireRole(c, shared_models.RoleVendor, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "vendor or admin role required"})
		return
	}
	recordedBy, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req VenuePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	booking, err := booking_models.GetBookingByID(ctx, pc.DB, bookingID)
	if err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		return
	}

	payment, err := payment_models.RecordVenuePayment(ctx, pc.DB, bookingID, booking.CustomerID, recordedBy, req.Amount, req.Method)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrDuplicatePayment):
			c.JSON(http.StatusConflict, gin.H{"error": utils.ErrDuplicatePayment.Error()})
		case errors.Is(err, utils.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.ErrorLogger.Errorf("Failed to record venue payment for booking %s: %v", bookingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record venue payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// RefundRequest applies a partial or full refund against a payment.
type RefundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

// ApplyRefund creates a refund row referencing the original payment.
func (pc *PaymentController) ApplyRefund(c *gin.Context) {
	if err := utils.RequireRole(c, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	recordedBy, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	refund, err := payment_models.ApplyRefund(c.Request.Context(), pc.DB, paymentID, req.Amount, req.Reason, recordedBy)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		case errors.Is(err, utils.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrDuplicatePayment):
			c.JSON(http.StatusConflict, gin.H{"error": "a refund already exists for this booking"})
		default:
			logger.ErrorLogger.Errorf("Failed to apply refund for payment %s: %v", paymentID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply refund"})
		}
		return
	}

	c.JSON(http.StatusCreated, refund)
}

// GetBookingPaymentStatus reports the booking's money position: which fees
// are paid, total collected and total still pending.
func (pc *PaymentController) GetBookingPaymentStatus(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	summary, err := payment_models.GetPaymentStatusSummary(c.Request.Context(), pc.DB, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to build payment summary for booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payment status"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
