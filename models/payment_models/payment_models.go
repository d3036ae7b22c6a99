package payment_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

// Payment is one discrete money movement. A booking has at most one payment
// per purpose; the gateway order id is unique across the whole ledger.
type Payment struct {
	ID                uuid.UUID  `json:"id"`
	BookingID         uuid.UUID  `json:"booking_id"`
	PayerID           uuid.UUID  `json:"payer_id"`
	Purpose           string     `json:"purpose"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	GatewayOrderID    *string    `json:"gateway_order_id,omitempty"`
	GatewayPaymentID  *string    `json:"gateway_payment_id,omitempty"`
	GatewaySignature  *string    `json:"-"`
	Status            string     `json:"status"`
	Method            string     `json:"method"`
	OriginalPaymentID *uuid.UUID `json:"original_payment_id,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	RecordedBy        *uuid.UUID `json:"recorded_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PaymentStatusSummary is the per-booking money view exposed to callers.
type PaymentStatusSummary struct {
	BookingID       uuid.UUID `json:"booking_id"`
	PlatformFeePaid bool      `json:"platform_fee_paid"`
	ServiceFeePaid  bool      `json:"service_fee_paid"`
	FullyPaid       bool      `json:"fully_paid"`
	TotalPaid       int64     `json:"total_paid"`
	TotalPending    int64     `json:"total_pending"`
}

// NewPayment builds a pending Payment.
func NewPayment(bookingID, payerID uuid.UUID, purpose string, amount int64, currency string) (*Payment, error) {
	if bookingID == uuid.Nil || payerID == uuid.Nil {
		return nil, fmt.Errorf("%w: booking and payer are required", utils.ErrValidation)
	}
	if !shared_models.IsValidPurpose(purpose) {
		return nil, fmt.Errorf("%w: unknown payment purpose %q", utils.ErrValidation, purpose)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", utils.ErrValidation)
	}
	if currency == "" {
		currency = "INR"
	}

	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for payment: %w", err)
	}
	now := time.Now()
	return &Payment{
		ID:        id,
		BookingID: bookingID,
		PayerID:   payerID,
		Purpose:   purpose,
		Amount:    amount,
		Currency:  currency,
		Status:    shared_models.PaymentStatusPending,
		Method:    shared_models.MethodOnline,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const paymentColumns = `
	id, booking_id, payer_id, purpose, amount, currency,
	gateway_order_id, gateway_payment_id, gateway_signature,
	status, method, original_payment_id,
	paid_at, failed_at, refunded_at, failure_reason, recorded_by,
	created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	p := &Payment{}
	err := row.Scan(
		&p.ID, &p.BookingID, &p.PayerID, &p.Purpose, &p.Amount, &p.Currency,
		&p.GatewayOrderID, &p.GatewayPaymentID, &p.GatewaySignature,
		&p.Status, &p.Method, &p.OriginalPaymentID,
		&p.PaidAt, &p.FailedAt, &p.RefundedAt, &p.FailureReason, &p.RecordedBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("database error fetching payment: %w", err)
	}
	return p, nil
}

// CreatePayment inserts a payment row. The unique (booking, purpose) index
// rejects duplicate fee rows; the unique gateway order index is the global
// idempotency key.
func CreatePayment(ctx context.Context, q shared_models.Querier, p *Payment) (*Payment, error) {
	logger.InfoLogger.Infof("Creating %s payment of %d %s for booking %s", p.Purpose, p.Amount, p.Currency, p.BookingID)

	_, err := q.Exec(ctx, `
		INSERT INTO payments (
			id, booking_id, payer_id, purpose, amount, currency,
			gateway_order_id, gateway_payment_id, gateway_signature,
			status, method, original_payment_id,
			paid_at, failed_at, refunded_at, failure_reason, recorded_by,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.BookingID, p.PayerID, p.Purpose, p.Amount, p.Currency,
		p.GatewayOrderID, p.GatewayPaymentID, p.GatewaySignature,
		p.Status, p.Method, p.OriginalPaymentID,
		p.PaidAt, p.FailedAt, p.RefundedAt, p.FailureReason, p.RecordedBy,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "uq_payments_booking_purpose":
				logger.WarnLogger.Warnf("Duplicate %s payment rejected for booking %s", p.Purpose, p.BookingID)
				return nil, utils.ErrDuplicatePayment
			case "uq_payments_gateway_order":
				return nil, utils.ErrDuplicatePayment
			}
		}
		logger.ErrorLogger.Errorf("Failed to insert payment for booking %s: %v", p.BookingID, err)
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return p, nil
}

// GetPaymentByID fetches a payment by primary key.
func GetPaymentByID(ctx context.Context, q shared_models.Querier, paymentID uuid.UUID) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID))
}

// GetPaymentByBookingAndPurpose fetches the single payment of one purpose
// for a booking, if any.
func GetPaymentByBookingAndPurpose(ctx context.Context, q shared_models.Querier, bookingID uuid.UUID, purpose string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND purpose = $2`, bookingID, purpose))
}

// GetPaymentByGatewayOrder fetches a payment by its gateway order reference.
func GetPaymentByGatewayOrder(ctx context.Context, q shared_models.Querier, gatewayOrderID string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway_order_id = $1`, gatewayOrderID))
}

// LockPaymentByGatewayOrder fetches a payment by gateway order reference and
// takes a row-level exclusive lock for the rest of the transaction. Two
// concurrent settlement callbacks for the same order serialize here.
func LockPaymentByGatewayOrder(ctx context.Context, tx pgx.Tx, gatewayOrderID string) (*Payment, error) {
	return scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway_order_id = $1 FOR UPDATE`, gatewayOrderID))
}

// MarkPaymentSuccess conditionally advances a payment from pending to
// success. Returns false when the row was no longer pending, which the
// settlement coordinator treats as the idempotent-replay case.
func MarkPaymentSuccess(ctx context.Context, q shared_models.Querier, paymentID uuid.UUID, gatewayPaymentID, gatewaySignature string, paidAt time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE payments
		SET status = $2, gateway_payment_id = $3, gateway_signature = $4, paid_at = $5, updated_at = $5
		WHERE id = $1 AND status = $6`,
		paymentID, shared_models.PaymentStatusSuccess, gatewayPaymentID, gatewaySignature, paidAt,
		shared_models.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment success: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaymentFailed advances a pending payment to failed with diagnostics.
func MarkPaymentFailed(ctx context.Context, q shared_models.Querier, paymentID uuid.UUID, reason string) error {
	now := time.Now()
	tag, err := q.Exec(ctx, `
		UPDATE payments SET status = $2, failed_at = $3, failure_reason = $4, updated_at = $3
		WHERE id = $1 AND status = $5`,
		paymentID, shared_models.PaymentStatusFailed, now, reason, shared_models.PaymentStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s is not pending", utils.ErrValidation, paymentID)
	}
	logger.WarnLogger.Warnf("Payment %s marked failed: %s", paymentID, reason)
	return nil
}

// RecordVenuePayment inserts a service-fee payment directly in success
// state; at-venue cash/card settlement has no gateway round trip.
func RecordVenuePayment(ctx context.Context, db *pgxpool.Pool, bookingID, payerID, recordedBy uuid.UUID, amount int64, method string) (*Payment, error) {
	switch method {
	case shared_models.MethodCash, shared_models.MethodCard, shared_models.MethodUPI:
	default:
		return nil, fmt.Errorf("%w: unsupported venue payment method %q", utils.ErrValidation, method)
	}

	p, err := NewPayment(bookingID, payerID, shared_models.PurposeServiceFee, amount, "INR")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p.Status = shared_models.PaymentStatusSuccess
	p.Method = method
	p.PaidAt = &now
	p.RecordedBy = &recordedBy

	return CreatePayment(ctx, db, p)
}

// ApplyRefund creates a refund payment row referencing the original, after
// checking the refund does not exceed what was actually collected.
func ApplyRefund(ctx context.Context, db *pgxpool.Pool, originalPaymentID uuid.UUID, amount int64, reason string, recordedBy uuid.UUID) (*Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", utils.ErrValidation)
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	original, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, originalPaymentID))
	if err != nil {
		return nil, err
	}
	if !shared_models.CanTransitionPayment(original.Status, shared_models.PaymentStatusRefunded) {
		return nil, fmt.Errorf("%w: payment in status %q cannot be refunded", utils.ErrValidation, original.Status)
	}
	if amount > original.Amount {
		return nil, fmt.Errorf("%w: refund %d exceeds original payment amount %d", utils.ErrValidation, amount, original.Amount)
	}

	refund, err := NewPayment(original.BookingID, original.PayerID, shared_models.PurposeRefund, amount, original.Currency)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	refund.Status = shared_models.PaymentStatusSuccess
	refund.Method = original.Method
	refund.OriginalPaymentID = &original.ID
	refund.PaidAt = &now
	refund.RecordedBy = &recordedBy

	if _, err := CreatePayment(ctx, tx, refund); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments SET status = $2, refunded_at = $3, updated_at = $3 WHERE id = $1`,
		original.ID, shared_models.PaymentStatusRefunded, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark original payment refunded: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}
	logger.InfoLogger.Infof("Refund of %d applied against payment %s (%s)", amount, original.ID, reason)
	return refund, nil
}

// GetPaymentStatusSummary aggregates the payments ledger for one booking.
// Refund rows subtract from the collected total.
func GetPaymentStatusSummary(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) (*PaymentStatusSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT purpose, amount, status FROM payments WHERE booking_id = $1`, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch payments for booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	defer rows.Close()

	summary := &PaymentStatusSummary{BookingID: bookingID}
	for rows.Next() {
		var purpose, status string
		var amount int64
		if err := rows.Scan(&purpose, &amount, &status); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		switch {
		case purpose == shared_models.PurposeRefund && status == shared_models.PaymentStatusSuccess:
			summary.TotalPaid -= amount
		case status == shared_models.PaymentStatusSuccess, status == shared_models.PaymentStatusRefunded:
			// Refunded originals still counted as collected; the refund row
			// carries the subtraction.
			summary.TotalPaid += amount
			if purpose == shared_models.PurposePlatformFee {
				summary.PlatformFeePaid = true
			}
			if purpose == shared_models.PurposeServiceFee {
				summary.ServiceFeePaid = true
			}
		case status == shared_models.PaymentStatusPending:
			summary.TotalPending += amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	summary.FullyPaid = summary.PlatformFeePaid && summary.ServiceFeePaid
	return summary, nil
}

// ListStalePendingPayments returns online payments that have been pending
// longer than the given window; used by the reconciliation reporter.
func ListStalePendingPayments(ctx context.Context, db *pgxpool.Pool, olderThan time.Time) ([]Payment, error) {
	rows, err := db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = $1 AND method = $2 AND created_at < $3
		ORDER BY created_at ASC`,
		shared_models.PaymentStatusPending, shared_models.MethodOnline, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stale pending payments: %w", err)
	}
	defer rows.Close()

	var stale []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, *p)
	}
	return stale, rows.Err()
}
