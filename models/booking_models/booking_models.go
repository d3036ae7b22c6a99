package booking_models

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

// BookingItem is one service line inside a booking. Unit price and duration
// are snapshotted from the catalog at creation time and immune to later
// catalog changes.
type BookingItem struct {
	ID              uuid.UUID `json:"id"`
	BookingID       uuid.UUID `json:"booking_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	Quantity        int       `json:"quantity"`
	UnitPrice       int64     `json:"unit_price"`
	LineTotal       int64     `json:"line_total"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Booking represents one reserved appointment at a salon.
type Booking struct {
	ID                 uuid.UUID     `json:"id"`
	Reference          string        `json:"reference"`
	CustomerID         uuid.UUID     `json:"customer_id"`
	SalonID            uuid.UUID     `json:"salon_id"`
	Date               time.Time     `json:"date"`
	Time               string        `json:"time"` // HH:MM, 24h
	Items              []BookingItem `json:"items"`
	ServicePrice       int64         `json:"service_price"`
	ConvenienceFee     int64         `json:"convenience_fee"`
	TotalAmount        int64         `json:"total_amount"`
	Status             string        `json:"status"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID    `json:"cancelled_by,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	DeletedAt          *time.Time    `json:"deleted_at,omitempty"`
}

// NewBooking validates input and builds a pending Booking with computed
// totals. The slot date must not be in the past and at least one service
// line is required.
func NewBooking(customerID, salonID uuid.UUID, date time.Time, timeOfDay string, convenienceFee int64, items []BookingItem) (*Booking, error) {
	if customerID == uuid.Nil || salonID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer and salon are required", utils.ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: booking requires at least one service", utils.ErrValidation)
	}
	if _, err := time.Parse("15:04", timeOfDay); err != nil {
		return nil, fmt.Errorf("%w: invalid slot time %q", utils.ErrValidation, timeOfDay)
	}
	// The date arrives as a bare YYYY-MM-DD, so compare calendar days in
	// the server's timezone, matching how appointment instants are composed.
	if date.Format("2006-01-02") < time.Now().Format("2006-01-02") {
		return nil, fmt.Errorf("%w: booking date is in the past", utils.ErrValidation)
	}
	if convenienceFee < 0 {
		return nil, fmt.Errorf("%w: convenience fee cannot be negative", utils.ErrValidation)
	}

	var servicePrice int64
	for i := range items {
		it := &items[i]
		if it.ServiceID == uuid.Nil {
			return nil, fmt.Errorf("%w: service id is required", utils.ErrValidation)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", utils.ErrValidation)
		}
		if it.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: unit price must be positive", utils.ErrValidation)
		}
		it.LineTotal = it.UnitPrice * int64(it.Quantity)
		servicePrice += it.LineTotal
	}

	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	now := time.Now()
	return &Booking{
		ID:             id,
		CustomerID:     customerID,
		SalonID:        salonID,
		Date:           date,
		Time:           timeOfDay,
		Items:          items,
		ServicePrice:   servicePrice,
		ConvenienceFee: convenienceFee,
		TotalAmount:    servicePrice + convenienceFee,
		Status:         shared_models.BookingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// nextReference allocates the next per-day sequence number and formats the
// human-readable booking reference, e.g. BK-20250601-0007. The counter upsert
// runs inside the caller's transaction, so two concurrent creates never get
// the same number.
func nextReference(ctx context.Context, q shared_models.Querier, date time.Time) (string, error) {
	var seq int
	err := q.QueryRow(ctx, `
		INSERT INTO booking_ref_counters (ref_date, seq) VALUES ($1, 1)
		ON CONFLICT (ref_date) DO UPDATE SET seq = booking_ref_counters.seq + 1
		RETURNING seq`, date).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate booking reference: %w", err)
	}
	return fmt.Sprintf("BK-%s-%04d", date.Format("20060102"), seq), nil
}

// CreateBooking inserts the booking and its line items in one transaction.
// The partial unique index on live (salon, date, time) is the slot conflict
// guard: the loser of a concurrent create gets ErrSlotConflict.
func CreateBooking(ctx context.Context, db *pgxpool.Pool, booking *Booking) (*Booking, error) {
	logger.InfoLogger.Infof("Attempting to create booking for salon %s at %s %s", booking.SalonID, booking.Date.Format("2006-01-02"), booking.Time)

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reference, err := nextReference(ctx, tx, booking.Date)
	if err != nil {
		return nil, err
	}
	booking.Reference = reference

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, reference, customer_id, salon_id, booking_date, booking_time,
			service_price, convenience_fee, total_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		booking.ID, booking.Reference, booking.CustomerID, booking.SalonID,
		booking.Date, booking.Time, booking.ServicePrice, booking.ConvenienceFee,
		booking.TotalAmount, booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_bookings_live_slot") {
			logger.WarnLogger.Warnf("Slot conflict for salon %s at %s %s", booking.SalonID, booking.Date.Format("2006-01-02"), booking.Time)
			return nil, utils.ErrSlotConflict
		}
		logger.ErrorLogger.Errorf("Failed to insert booking: %v", err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	for i := range booking.Items {
		it := &booking.Items[i]
		itemID, err := shared_models.GenerateUUIDv7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate UUID for booking item: %w", err)
		}
		it.ID = itemID
		it.BookingID = booking.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_items (id, booking_id, service_id, quantity, unit_price, line_total, duration_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, it.BookingID, it.ServiceID, it.Quantity, it.UnitPrice, it.LineTotal, it.DurationMinutes,
		)
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to insert booking item for booking %s: %v", booking.ID, err)
			return nil, fmt.Errorf("failed to create booking item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s (%s) created for salon %s", booking.ID, booking.Reference, booking.SalonID)
	return booking, nil
}

const bookingColumns = `
	id, reference, customer_id, salon_id, booking_date, booking_time::text,
	service_price, convenience_fee, total_amount, status,
	confirmed_at, cancelled_at, cancelled_by, cancellation_reason,
	created_at, updated_at, deleted_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	b := &Booking{}
	err := row.Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.SalonID, &b.Date, &b.Time,
		&b.ServicePrice, &b.ConvenienceFee, &b.TotalAmount, &b.Status,
		&b.ConfirmedAt, &b.CancelledAt, &b.CancelledBy, &b.CancellationReason,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrBookingNotFound
		}
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	// Postgres TIME scans as HH:MM:SS; keep the wire form HH:MM.
	if len(b.Time) > 5 {
		b.Time = b.Time[:5]
	}
	return b, nil
}

// GetBookingByID fetches a booking and its line items.
func GetBookingByID(ctx context.Context, q shared_models.Querier, bookingID uuid.UUID) (*Booking, error) {
	booking, err := scanBooking(q.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND deleted_at IS NULL`, bookingID))
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, booking_id, service_id, quantity, unit_price, line_total, duration_minutes
		FROM booking_items WHERE booking_id = $1`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.ServiceID, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan booking item: %w", err)
		}
		booking.Items = append(booking.Items, it)
	}
	return booking, rows.Err()
}

// ConfirmBooking moves a pending booking to confirmed. It is only called by
// the settlement coordinator inside its transaction. Returns false when the
// booking was not pending (caller decides whether that is a replay or an
// inconsistency).
func ConfirmBooking(ctx context.Context, q shared_models.Querier, bookingID uuid.UUID, confirmedAt time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE bookings SET status = $2, confirmed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL`,
		bookingID, shared_models.BookingStatusConfirmed, confirmedAt, shared_models.BookingStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelBooking cancels a booking while it is still cancellable. Cancelling
// an already-cancelled booking is a no-op success.
func CancelBooking(ctx context.Context, db *pgxpool.Pool, bookingID, actor uuid.UUID, reason string) (*Booking, error) {
	now := time.Now()
	tag, err := db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancellation_reason = $5, updated_at = $3
		WHERE id = $1 AND status IN ($6, $7) AND deleted_at IS NULL`,
		bookingID, shared_models.BookingStatusCancelled, now, actor, reason,
		shared_models.BookingStatusPending, shared_models.BookingStatusConfirmed,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to cancel booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	booking, getErr := GetBookingByID(ctx, db, bookingID)
	if getErr != nil {
		return nil, getErr
	}
	if tag.RowsAffected() == 0 {
		if booking.Status == shared_models.BookingStatusCancelled {
			logger.InfoLogger.Infof("Booking %s already cancelled, no-op", bookingID)
			return booking, nil
		}
		if !shared_models.CanTransitionBooking(booking.Status, shared_models.BookingStatusCancelled) {
			return nil, fmt.Errorf("%w: booking in status %q cannot be cancelled", utils.ErrValidation, booking.Status)
		}
		return nil, fmt.Errorf("booking %s changed state during cancellation", bookingID)
	}
	logger.InfoLogger.Infof("Booking %s cancelled by %s", bookingID, actor)
	return booking, nil
}

// FinishBooking moves a confirmed booking to a post-appointment terminal
// status (completed or no_show).
func FinishBooking(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID, status string) (*Booking, error) {
	if status != shared_models.BookingStatusCompleted && status != shared_models.BookingStatusNoShow {
		return nil, fmt.Errorf("%w: invalid terminal status %q", utils.ErrValidation, status)
	}
	now := time.Now()
	tag, err := db.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND deleted_at IS NULL`,
		bookingID, status, now, shared_models.BookingStatusConfirmed,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to mark booking %s as %s: %v", bookingID, status, err)
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		booking, getErr := GetBookingByID(ctx, db, bookingID)
		if getErr != nil {
			return nil, getErr
		}
		if !shared_models.CanTransitionBooking(booking.Status, status) {
			return nil, fmt.Errorf("%w: booking in status %q cannot be marked %s", utils.ErrValidation, booking.Status, status)
		}
		return nil, fmt.Errorf("booking %s changed state during update", bookingID)
	}
	return GetBookingByID(ctx, db, bookingID)
}

// SoftDeleteBooking marks a booking deleted without removing the row, so the
// financial history stays intact.
func SoftDeleteBooking(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) error {
	tag, err := db.Exec(ctx, `
		UPDATE bookings SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrBookingNotFound
	}
	logger.InfoLogger.Infof("Booking %s soft-deleted", bookingID)
	return nil
}

// GetBookingsBySalon retrieves bookings for a salon with pagination and an
// optional status filter.
func GetBookingsBySalon(ctx context.Context, db *pgxpool.Pool, salonID uuid.UUID, status string, page, limit int) ([]Booking, error) {
	offset := (page - 1) * limit
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE salon_id = $1 AND deleted_at IS NULL`
	args := []any{salonID}
	if status != "" {
		query += ` AND status = $2 ORDER BY booking_date DESC, booking_time DESC LIMIT $3 OFFSET $4`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY booking_date DESC, booking_time DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch bookings for salon %s: %v", salonID, err)
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
