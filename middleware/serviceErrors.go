package middleware

import (
	"errors"

	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// ServiceErrorResponse translates an engine error into the stable HTTP
// status/message pair for it. Anything outside the known taxonomy becomes a
// 500 without leaking internals.
func ServiceErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return JsonResponse(c, fiber.StatusConflict, false, "User already enrolled in this course!", nil)
	case errors.Is(err, services.ErrCourseNotAvailable):
		return JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	case errors.Is(err, services.ErrCapacityExceeded):
		return JsonResponse(c, fiber.StatusConflict, false, "Course is full!", nil)
	case errors.Is(err, services.ErrAccessDenied):
		return JsonResponse(c, fiber.StatusForbidden, false, "Access denied! Complete your payment or check your access period.", nil)
	case errors.Is(err, services.ErrUnknownEnrollment):
		return JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
	case errors.Is(err, services.ErrNotAuthorized):
		return JsonResponse(c, fiber.StatusForbidden, false, "You are not allowed to perform this action!", nil)
	case errors.Is(err, services.ErrCourseNotCompleted):
		return JsonResponse(c, fiber.StatusBadRequest, false, "Please complete the course first!", nil)
	case errors.Is(err, services.ErrConcurrentModification):
		return JsonResponse(c, fiber.StatusConflict, false, "Enrollment is being updated, please retry!", nil)
	case errors.Is(err, services.ErrInvalidEventPayload):
		return JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
	default:
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong!", nil)
	}
}
