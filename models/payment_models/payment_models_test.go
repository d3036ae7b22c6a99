package payment_models

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	os.Exit(m.Run())
}

func TestNewPayment(t *testing.T) {
	bookingID := uuid.New()
	payerID := uuid.New()

	p, err := NewPayment(bookingID, payerID, shared_models.PurposePlatformFee, 5000, "")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, bookingID, p.BookingID)
	assert.Equal(t, payerID, p.PayerID)
	assert.Equal(t, int64(5000), p.Amount)
	assert.Equal(t, "INR", p.Currency, "currency defaults to INR")
	assert.Equal(t, shared_models.PaymentStatusPending, p.Status)
	assert.Equal(t, shared_models.MethodOnline, p.Method)
}

func TestNewPaymentValidation(t *testing.T) {
	bookingID := uuid.New()
	payerID := uuid.New()

	_, err := NewPayment(uuid.Nil, payerID, shared_models.PurposePlatformFee, 5000, "INR")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = NewPayment(bookingID, uuid.Nil, shared_models.PurposePlatformFee, 5000, "INR")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = NewPayment(bookingID, payerID, "donation", 5000, "INR")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = NewPayment(bookingID, payerID, shared_models.PurposePlatformFee, 0, "INR")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = NewPayment(bookingID, payerID, shared_models.PurposePlatformFee, -100, "INR")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

// testPool connects to the database named by TEST_DATABASE_URL. The schema
// from migrations/001_init.sql must already be applied.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedBooking(t *testing.T, pool *pgxpool.Pool) *booking_models.Booking {
	t.Helper()
	items := []booking_models.BookingItem{
		{ServiceID: uuid.New(), UnitPrice: 50000, Quantity: 1, DurationMinutes: 30},
	}
	b, err := booking_models.NewBooking(uuid.New(), uuid.New(), time.Now().AddDate(0, 0, 4), "12:00", 5000, items)
	require.NoError(t, err)
	b, err = booking_models.CreateBooking(context.Background(), pool, b)
	require.NoError(t, err)
	return b
}

func TestApplyRefundCannotExceedOriginal(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	b := seedBooking(t, pool)
	recordedBy := uuid.New()

	original, err := RecordVenuePayment(ctx, pool, b.ID, b.CustomerID, recordedBy, b.ServicePrice, shared_models.MethodCash)
	require.NoError(t, err)

	_, err = ApplyRefund(ctx, pool, original.ID, b.ServicePrice+1, "overcharge claim", recordedBy)
	assert.ErrorIs(t, err, utils.ErrValidation)

	// the failed refund must not have touched the ledger
	got, err := GetPaymentByID(ctx, pool, original.ID)
	require.NoError(t, err)
	assert.Equal(t, shared_models.PaymentStatusSuccess, got.Status)
	assert.Nil(t, got.RefundedAt)
	_, err = GetPaymentByBookingAndPurpose(ctx, pool, b.ID, shared_models.PurposeRefund)
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)

	// the exact amount refunds fine afterwards
	refund, err := ApplyRefund(ctx, pool, original.ID, b.ServicePrice, "service not delivered", recordedBy)
	require.NoError(t, err)
	assert.Equal(t, b.ServicePrice, refund.Amount)

	got, err = GetPaymentByID(ctx, pool, original.ID)
	require.NoError(t, err)
	assert.Equal(t, shared_models.PaymentStatusRefunded, got.Status)
}

func TestPaymentStatusSummaryFullyPaid(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	b := seedBooking(t, pool)

	summary, err := GetPaymentStatusSummary(ctx, pool, b.ID)
	require.NoError(t, err)
	assert.False(t, summary.FullyPaid)
	assert.Zero(t, summary.TotalPaid)

	// pending platform fee counts toward pending, not paid
	platform, err := NewPayment(b.ID, b.CustomerID, shared_models.PurposePlatformFee, b.ConvenienceFee, "INR")
	require.NoError(t, err)
	orderID := "order_sum_" + uuid.NewString()[:8]
	platform.GatewayOrderID = &orderID
	platform, err = CreatePayment(ctx, pool, platform)
	require.NoError(t, err)

	summary, err = GetPaymentStatusSummary(ctx, pool, b.ID)
	require.NoError(t, err)
	assert.False(t, summary.PlatformFeePaid)
	assert.Equal(t, b.ConvenienceFee, summary.TotalPending)

	advanced, err := MarkPaymentSuccess(ctx, pool, platform.ID, "pay_sum_1", "sig_sum_1", time.Now())
	require.NoError(t, err)
	require.True(t, advanced)

	_, err = RecordVenuePayment(ctx, pool, b.ID, b.CustomerID, uuid.New(), b.ServicePrice, shared_models.MethodUPI)
	require.NoError(t, err)

	summary, err = GetPaymentStatusSummary(ctx, pool, b.ID)
	require.NoError(t, err)
	assert.True(t, summary.PlatformFeePaid)
	assert.True(t, summary.ServiceFeePaid)
	assert.True(t, summary.FullyPaid)
	assert.Equal(t, b.ConvenienceFee+b.ServicePrice, summary.TotalPaid)
	assert.Zero(t, summary.TotalPending)
}
