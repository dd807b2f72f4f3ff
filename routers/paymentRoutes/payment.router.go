package paymentRoutes

import (
	controllers "lms/controllers/payment"
	"lms/middleware"
	validators "lms/validators/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up checkout and webhook routes
func SetupPaymentRoutes(app *fiber.App) {
	paymentGroup := app.Group("/payment")

	// Provider webhook: signature-verified, no JWT
	paymentGroup.Post("/webhook", validators.VerifyWebhook(), controllers.PaymentWebhook)

	// Checkout session for a pending enrollment
	enrollmentGroup := app.Group("/enrollment")
	enrollmentGroup.Post("/:id/payment/session", middleware.JWTMiddleware, validators.CreatePaymentSession(), controllers.CreatePaymentSession)
}
