package routes

import (
	"realtypay/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const PathPayment = "/payment"

func addPaymentRoutes(rg *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	payment := rg.Group(PathPayment)
	{
		payment.POST("/initiate", IdentityRequired(), paymentHandler.Initiate)
		payment.GET("/verify/:reference", IdentityRequired(), paymentHandler.Verify)
		payment.GET("/transactions/:reference", IdentityRequired(), paymentHandler.GetTransaction)

		// Webhooks carry no user session; authenticity comes from the
		// per-provider signature checked inside the gateway client.
		payment.POST("/webhook/:gateway", paymentHandler.Webhook)
	}
}
