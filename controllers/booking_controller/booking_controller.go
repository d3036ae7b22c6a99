package booking_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/service_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

const (
	redisSlotHoldPrefix = "slot_hold:"
	redisSlotHoldExpiry = 10 * time.Minute
)

// BookingController holds dependencies for booking lifecycle operations.
type BookingController struct {
	DB          *pgxpool.Pool
	RedisClient *redis.Client
}

// NewBookingController creates a new instance of BookingController.
func NewBookingController(db *pgxpool.Pool, rdb *redis.Client) *BookingController {
	return &BookingController{DB: db, RedisClient: rdb}
}

// CreateBookingItemRequest is one requested service line.
type CreateBookingItemRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateBookingRequest is the customer-facing create payload.
type CreateBookingRequest struct {
	SalonID string                     `json:"salon_id" binding:"required"`
	Date    string                     `json:"date" binding:"required"` // YYYY-MM-DD
	Time    string                     `json:"time" binding:"required"` // HH:MM
	Items   []CreateBookingItemRequest `json:"items" binding:"required"`
}

func slotHoldKey(salonID uuid.UUID, date, timeOfDay string) string {
	return fmt.Sprintf("%s%s:%s:%s", redisSlotHoldPrefix, salonID, date, timeOfDay)
}

// holdSlot takes a short-lived Redis hold on the slot so most losing
// customers get turned away before touching the database. The partial
// unique index in storage remains the authority.
func (bc *BookingController) holdSlot(ctx context.Context, salonID uuid.UUID, date, timeOfDay string, customerID uuid.UUID) error {
	if bc.RedisClient == nil {
		return nil
	}
	key := slotHoldKey(salonID, date, timeOfDay)
	set, err := bc.RedisClient.SetNX(ctx, key, customerID.String(), redisSlotHoldExpiry).Result()
	if err != nil {
		logger.WarnLogger.Warnf("Redis slot hold failed for %s, falling through to DB guard: %v", key, err)
		return nil
	}
	if !set {
		holder, _ := bc.RedisClient.Get(ctx, key).Result()
		if holder != customerID.String() {
			return utils.ErrSlotConflict
		}
	}
	return nil
}

func (bc *BookingController) releaseSlotHold(ctx context.Context, salonID uuid.UUID, date, timeOfDay string) {
	if bc.RedisClient == nil {
		return
	}
	if err := bc.RedisClient.Del(ctx, slotHoldKey(salonID, date, timeOfDay)).Err(); err != nil {
		logger.WarnLogger.Warnf("Failed to release slot hold for salon %s: %v", salonID, err)
	}
}

// convenienceFee reads the platform convenience fee (minor units) from the
// environment.
func convenienceFee() int64 {
	if v := os.Getenv("CONVENIENCE_FEE"); v != "" {
		if fee, err := strconv.ParseInt(v, 10, 64); err == nil && fee >= 0 {
			return fee
		}
		logger.WarnLogger.Warnf("Invalid CONVENIENCE_FEE %q, using default", v)
	}
	return 5000
}

// appointmentTime combines the booking's date and HH:MM time into one instant.
func appointmentTime(b *booking_models.Booking) time.Time {
	t, err := time.Parse("15:04", b.Time)
	if err != nil {
		return b.Date
	}
	return time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
}

// CreateBooking validates the requested slot and line items, snapshots
// catalog prices, and inserts a pending booking.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	customerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	salonID, err := uuid.Parse(req.SalonID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid salon id"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking requires at least one service"})
		return
	}

	ctx := c.Request.Context()

	// Snapshot current catalog price and duration into the line items.
	items := make([]booking_models.BookingItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		serviceID, err := uuid.Parse(reqItem.ServiceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
			return
		}
		svc, err := service_models.GetServiceByID(ctx, bc.DB, serviceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service selected"})
			return
		}
		if !svc.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("service %q is not active", svc.Name)})
			return
		}
		if svc.SalonID != salonID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "service does not belong to this salon"})
			return
		}
		quantity := reqItem.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items = append(items, booking_models.BookingItem{
			ServiceID:       svc.ID,
			Quantity:        quantity,
			UnitPrice:       svc.Price,
			DurationMinutes: svc.DurationMinutes,
		})
	}

	booking, err := booking_models.NewBooking(customerID, salonID, date, req.Time, convenienceFee(), items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := bc.holdSlot(ctx, salonID, req.Date, req.Time, customerID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": utils.ErrSlotConflict.Error()})
		return
	}

	created, err := booking_models.CreateBooking(ctx, bc.DB, booking)
	if err != nil {
		bc.releaseSlotHold(ctx, salonID, req.Date, req.Time)
		if errors.Is(err, utils.ErrSlotConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": utils.ErrSlotConflict.Error()})
			return
		}
		if errors.Is(err, utils.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to create booking: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking": created,
		"message": "booking created; complete the platform fee payment to confirm",
	})
}

// GetBooking fetches one booking with its line items.
func (bc *BookingController) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := booking_models.GetBookingByID(c.Request.Context(), bc.DB, bookingID)
	if err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBookingRequest carries the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking cancels a live booking before its appointment time.
// Cancelling an already-cancelled booking succeeds without effect.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	actorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req CancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	booking, err := booking_models.GetBookingByID(ctx, bc.DB, bookingID)
	if err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		return
	}

	role := utils.GetRoleFromContext(c)
	if role == shared_models.RoleCustomer && booking.CustomerID != actorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "booking does not belong to this customer"})
		return
	}

	if shared_models.IsBookingLive(booking.Status) && time.Now().After(appointmentTime(booking)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking can no longer be cancelled after the appointment time"})
		return
	}

	cancelled, err := booking_models.CancelBooking(ctx, bc.DB, bookingID, actorID, req.Reason)
	if err != nil {
		if errors.Is(err, utils.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to cancel booking %s: %v", bookingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
		return
	}

	bc.releaseSlotHold(ctx, cancelled.SalonID, cancelled.Date.Format("2006-01-02"), cancelled.Time)
	c.JSON(http.StatusOK, cancelled)
}

// MarkCompleted moves a confirmed booking to completed after the appointment.
func (bc *BookingController) MarkCompleted(c *gin.Context) {
	bc.finish(c, shared_models.BookingStatusCompleted)
}

// MarkNoShow moves a confirmed booking to no_show after the appointment.
func (bc *BookingController) MarkNoShow(c *gin.Context) {
	bc.finish(c, shared_models.BookingStatusNoShow)
}

func (bc *BookingController) finish(c *gin.Context, status string) {
	if err := utils.RequireRole(c, shared_models.RoleVendor, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "vendor or admin role required"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	ctx := c.Request.Context()
	booking, err := booking_models.GetBookingByID(ctx, bc.DB, bookingID)
	if err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		return
	}
	if time.Now().Before(appointmentTime(booking)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment has not happened yet"})
		return
	}

	updated, err := booking_models.FinishBooking(ctx, bc.DB, bookingID, status)
	if err != nil {
		if errors.Is(err, utils.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to mark booking %s as %s: %v", bookingID, status, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update booking"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListSalonBookings lists a salon's bookings with pagination and an optional
// status filter.
func (bc *BookingController) ListSalonBookings(c *gin.Context) {
	salonID, err := uuid.Parse(c.Param("salon_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid salon id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	bookings, err := booking_models.GetBookingsBySalon(c.Request.Context(), bc.DB, salonID, c.Query("status"), page, limit)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list bookings for salon %s: %v", salonID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "page": page, "limit": limit})
}

// DeleteBooking soft-deletes a booking; financial history is preserved.
func (bc *BookingController) DeleteBooking(c *gin.Context) {
	if err := utils.RequireRole(c, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := booking_models.SoftDeleteBooking(c.Request.Context(), bc.DB, bookingID); err != nil {
		if errors.Is(err, utils.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}
