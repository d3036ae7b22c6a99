package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joy095/booking/clients"
	"github.com/joy095/booking/config/db"
	"github.com/joy095/booking/controllers/payment_controller"
	"github.com/joy095/booking/middlewares"
	"github.com/joy095/booking/middlewares/auth"
)

func RegisterPaymentRoutes(router *gin.Engine, gateway clients.RazorpayClientWrapper) {
	paymentController := payment_controller.NewPaymentController(db.DB, gateway)

	bookings := router.Group("/bookings")
	bookings.Use(auth.AuthMiddleware())
	{
		bookings.POST("/:booking_id/payments", middleware.NewRateLimiter("10-1m", "initiatePayment"), paymentController.InitiateOnlinePayment)
		bookings.POST("/:booking_id/venue-payment", paymentController.RecordVenuePayment)
		bookings.GET("/:booking_id/payment-status", paymentController.GetBookingPaymentStatus)
	}

	payments := router.Group("/payments")
	payments.Use(auth.AuthMiddleware())
	{
		payments.POST("/:payment_id/refund", paymentController.ApplyRefund)
	}
}
