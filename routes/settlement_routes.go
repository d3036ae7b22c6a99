package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/joy095/booking/clients"
	"github.com/joy095/booking/config/db"
	"github.com/joy095/booking/controllers/settlement_controller"
)

// RegisterSettlementRoutes wires the payment gateway callback. The endpoint
// is unauthenticated: the signature in the payload is what authenticates the
// gateway.
func RegisterSettlementRoutes(router *gin.Engine, gateway clients.RazorpayClientWrapper) {
	settlementController := settlement_controller.NewSettlementController(db.DB, gateway)

	router.POST("/payments/callback", settlementController.Settle)
}
