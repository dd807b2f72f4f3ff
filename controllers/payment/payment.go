package paymentController

import (
	"errors"
	"log"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// CreatePaymentSession opens (or returns the open) checkout session for a
// pending enrollment and hands back the redirect URL
func CreatePaymentSession(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	enrollmentID := c.Locals("enrollmentID").(int)

	session, err := services.OpenPaymentSession(database.Database.Db, utils.NewSandboxGateway(), uint(enrollmentID), userID)
	if err != nil {
		return middleware.ServiceErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment session created!", session)
}

// PaymentWebhook consumes verified provider notifications. Signature
// verification happens in the validator middleware before the body reaches
// this handler. Permanent failures are acknowledged with 200 so the provider
// stops redelivering; transient ones return 500 so it retries — event
// processing is idempotent, which makes redelivery safe.
func PaymentWebhook(c *fiber.Ctx) error {
	event, ok := c.Locals("verifiedPaymentEvent").(*services.PaymentEvent)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
	}

	outcome, err := services.HandlePaymentEvent(database.Database.Db, event)
	if err != nil {
		if errors.Is(err, services.ErrUnknownEnrollment) {
			// Permanent: the enrollment is gone, redelivery can never help.
			log.Printf("[PAYMENT-WEBHOOK] Dropping event for unknown enrollment, session %s", event.SessionID)
			return middleware.JsonResponse(c, fiber.StatusOK, true, "Event acknowledged (no matching enrollment).", nil)
		}
		if errors.Is(err, services.ErrInvalidEventPayload) {
			return middleware.ServiceErrorResponse(c, err)
		}
		log.Printf("[PAYMENT-WEBHOOK] Failed to process event for session %s: %v", event.SessionID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Event processing failed, please redeliver!", nil)
	}

	if outcome == courseModels.EventOutcomeApplied && event.Kind == services.EventSessionCompleted {
		sendPaymentReceipt(event.SessionID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed!", fiber.Map{
		"outcome": outcome,
	})
}

// sendPaymentReceipt emails the learner after a settlement was applied.
// Best effort only.
func sendPaymentReceipt(sessionID string) {
	db := database.Database.Db

	var enrollment courseModels.Enrollment
	if err := db.Where("payment_session_id = ?", sessionID).First(&enrollment).Error; err != nil {
		return
	}
	var user models.User
	if err := db.Where("id = ?", enrollment.UserID).First(&user).Error; err != nil {
		return
	}
	var crs courseModels.Course
	if err := db.Where("id = ?", enrollment.CourseID).First(&crs).Error; err != nil {
		return
	}

	utils.SendPaymentReceipt(user.Email, user.Name, crs.Title, enrollment.Amount, enrollment.Currency, enrollment.TransactionID)
	utils.SendEnrollmentConfirmation(user.Email, user.Name, crs.Title, enrollment.ExpiresAt)
}
