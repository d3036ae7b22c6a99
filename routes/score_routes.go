package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joy095/booking/config/db"
	"github.com/joy095/booking/controllers/score_controller"
	"github.com/joy095/booking/middlewares/auth"
)

func RegisterScoreRoutes(router *gin.Engine) {
	scoreController := score_controller.NewScoreController(db.DB)

	vendorRequests := router.Group("/vendor-requests")
	vendorRequests.Use(auth.AuthMiddleware())
	{
		vendorRequests.POST("", scoreController.CreateVendorRequest)
		vendorRequests.POST("/:request_id/decide", scoreController.DecideVendorRequest)
	}

	rms := router.Group("/rms")
	rms.Use(auth.AuthMiddleware())
	{
		rms.GET("/:rm_id/score", scoreController.GetScore)
		rms.GET("/:rm_id/score/history", scoreController.GetHistory)
	}
}
