package paymentValidator

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"lms/config"
	"lms/middleware"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

func CreatePaymentSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, err := strconv.Atoi(strings.TrimSpace(c.Params("id")))
		if err != nil || enrollmentID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}

		c.Locals("enrollmentID", enrollmentID)
		return c.Next()
	}
}

// VerifyWebhook checks the provider's HMAC signature over the raw body and
// parses the event. The engine only ever sees verified events.
func VerifyWebhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Webhook-Signature")
		if signature == "" {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Missing webhook signature!", nil)
		}

		body := c.Body()

		mac := hmac.New(sha256.New, []byte(config.AppConfig.PaymentWebhookKey))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid webhook signature!", nil)
		}

		event, err := services.ParsePaymentEvent(body)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
		}

		c.Locals("verifiedPaymentEvent", event)
		return c.Next()
	}
}
