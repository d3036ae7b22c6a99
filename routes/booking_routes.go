package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/joy095/booking/config/db"
	"github.com/joy095/booking/controllers/booking_controller"
	"github.com/joy095/booking/middlewares"
	"github.com/joy095/booking/middlewares/auth"
)

func RegisterBookingRoutes(router *gin.Engine, rdb *redis.Client) {
	bookingController := booking_controller.NewBookingController(db.DB, rdb)

	protected := router.Group("/bookings")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("", middleware.NewRateLimiter("20-1m", "createBooking"), bookingController.CreateBooking)
		protected.GET("/:booking_id", bookingController.GetBooking)
		protected.POST("/:booking_id/cancel", bookingController.CancelBooking)
		protected.POST("/:booking_id/complete", bookingController.MarkCompleted)
		protected.POST("/:booking_id/no-show", bookingController.MarkNoShow)
		protected.DELETE("/:booking_id", bookingController.DeleteBooking)
	}

	salons := router.Group("/salons")
	salons.Use(auth.AuthMiddleware())
	{
		salons.GET("/:salon_id/bookings", bookingController.ListSalonBookings)
	}
}
