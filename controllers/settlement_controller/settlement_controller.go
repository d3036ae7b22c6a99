package settlement_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/clients"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/payment_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

// SettlementService closes the gap between "gateway says paid" and "booking
// is confirmed". Both writes happen in one transaction serialized on a
// row-level lock of the payment, so there is no observable state where one
// succeeded and the other did not.
type SettlementService struct {
	DB      *pgxpool.Pool
	Gateway clients.RazorpayClientWrapper
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(db *pgxpool.Pool, gateway clients.RazorpayClientWrapper) *SettlementService {
	return &SettlementService{DB: db, Gateway: gateway}
}

// SettlementResult is returned for both fresh settlements and idempotent
// replays; replays carry the same booking id and amount as the first call.
type SettlementResult struct {
	BookingID         uuid.UUID `json:"booking_id"`
	PaymentID         uuid.UUID `json:"payment_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	WasAlreadySettled bool      `json:"was_already_settled"`
}

func replayResult(p *payment_models.Payment) *SettlementResult {
	return &SettlementResult{
		BookingID:         p.BookingID,
		PaymentID:         p.ID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		WasAlreadySettled: true,
	}
}

// Settle verifies a gateway callback and marks the payment successful.
// Only a platform-fee settlement also confirms the booking, in the same
// transaction; other purposes settle their payment row without touching
// the booking state.
//
// Gateways deliver duplicate callbacks; calling Settle twice with the same
// references returns the same result both times and leaves exactly one
// success transition behind.
func (s *SettlementService) Settle(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (*SettlementResult, error) {
	if gatewayOrderID == "" || gatewayPaymentID == "" || gatewaySignature == "" {
		return nil, fmt.Errorf("%w: order, payment and signature references are required", utils.ErrValidation)
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row-level exclusive lock: a concurrent callback for the same order
	// blocks here and then observes the completed result.
	payment, err := payment_models.LockPaymentByGatewayOrder(ctx, tx, gatewayOrderID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case shared_models.PaymentStatusSuccess:
		logger.InfoLogger.Infof("Settlement replay for order %s, payment %s", gatewayOrderID, payment.ID)
		return replayResult(payment), nil
	case shared_models.PaymentStatusFailed:
		return nil, utils.ErrPaymentAlreadyFailed
	case shared_models.PaymentStatusPending:
		// proceed
	default:
		logger.ErrorLogger.Errorf("Settlement hit payment %s in unexpected status %q", payment.ID, payment.Status)
		return nil, utils.ErrInconsistentState
	}

	if !s.Gateway.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, gatewaySignature) {
		logger.WarnLogger.Warnf("Signature verification failed for order %s", gatewayOrderID)
		if err := payment_models.MarkPaymentFailed(ctx, tx, payment.ID, "gateway signature verification failed"); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit payment failure: %w", err)
		}
		return nil, utils.ErrGatewayVerification
	}

	now := time.Now()
	advanced, err := payment_models.MarkPaymentSuccess(ctx, tx, payment.ID, gatewayPaymentID, gatewaySignature, now)
	if err != nil {
		return nil, err
	}
	if !advanced {
		// The row left pending under our lock: another caller finished the
		// settlement between lookup and update. Re-read and replay.
		settled, err := payment_models.GetPaymentByID(ctx, tx, payment.ID)
		if err != nil {
			return nil, err
		}
		if settled.Status == shared_models.PaymentStatusSuccess {
			return replayResult(settled), nil
		}
		if settled.Status == shared_models.PaymentStatusFailed {
			return nil, utils.ErrPaymentAlreadyFailed
		}
		logger.ErrorLogger.Errorf("Payment %s in status %q after lost settlement race", settled.ID, settled.Status)
		return nil, utils.ErrInconsistentState
	}

	// Confirmation is the consequence of the platform fee clearing; a
	// service or registration fee settling online must never flip a booking
	// whose platform fee is still unpaid.
	if payment.Purpose == shared_models.PurposePlatformFee {
		if err := s.confirmBooking(ctx, tx, payment, gatewayOrderID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	logger.InfoLogger.Infof("Settled order %s: payment %s (%s) success for booking %s", gatewayOrderID, payment.ID, payment.Purpose, payment.BookingID)
	return &SettlementResult{
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
	}, nil
}

func (s *SettlementService) confirmBooking(ctx context.Context, tx pgx.Tx, payment *payment_models.Payment, gatewayOrderID string, now time.Time) error {
	confirmed, err := booking_models.ConfirmBooking(ctx, tx, payment.BookingID, now)
	if err != nil {
		return err
	}
	if !confirmed {
		// Paid but the booking is not pending: cancelled in flight or
		// advanced outside the coordinator. Roll back the payment write and
		// escalate for manual reconciliation rather than guessing.
		booking, getErr := booking_models.GetBookingByID(ctx, tx, payment.BookingID)
		status := "unknown"
		if getErr == nil {
			status = booking.Status
		}
		logger.ErrorLogger.Errorf("ALERT: settlement for order %s found booking %s in status %q; payment left pending for manual reconciliation",
			gatewayOrderID, payment.BookingID, status)
		return utils.ErrInconsistentState
	}
	return nil
}

// SettlementController exposes the gateway callback endpoint.
type SettlementController struct {
	DB      *pgxpool.Pool
	Service *SettlementService
}

// NewSettlementController creates a new SettlementController.
func NewSettlementController(db *pgxpool.Pool, gateway clients.RazorpayClientWrapper) *SettlementController {
	return &SettlementController{
		DB:      db,
		Service: NewSettlementService(db, gateway),
	}
}

// SettleRequest is the checkout callback payload posted after payment.
type SettleRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// Settle handles the payment gateway callback.
func (sc *SettlementController) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload: " + err.Error()})
		return
	}

	ctx := c.Request.Context()

	// Audit trail first: raw events are kept so failed processing can be
	// replayed during reconciliation.
	if _, err := sc.DB.Exec(ctx,
		`INSERT INTO payment_events (event_type, raw_payload) VALUES ($1, $2)`,
		"checkout.callback", fmt.Sprintf(`{"order_id":%q,"payment_id":%q}`, req.RazorpayOrderID, req.RazorpayPaymentID),
	); err != nil {
		logger.ErrorLogger.Errorf("Failed to log payment event for order %s: %v", req.RazorpayOrderID, err)
		// keep processing; the audit log is best effort
	}

	result, err := sc.Service.Settle(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, utils.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no payment found for this order"})
		case errors.Is(err, utils.ErrGatewayVerification):
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrGatewayVerification.Error()})
		case errors.Is(err, utils.ErrPaymentAlreadyFailed):
			c.JSON(http.StatusConflict, gin.H{"error": utils.ErrPaymentAlreadyFailed.Error()})
		case errors.Is(err, utils.ErrInconsistentState):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement could not be applied; flagged for reconciliation"})
		default:
			logger.ErrorLogger.Errorf("Settlement failed for order %s: %v", req.RazorpayOrderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
