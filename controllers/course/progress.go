package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// UpdateLessonProgress applies a progress delta to one lesson and returns the
// refreshed enrollment aggregate
func UpdateLessonProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)

	delta, ok := c.Locals("validatedProgress").(*services.ProgressDelta)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	enrollment, fact, err := services.UpdateProgress(database.Database.Db, userID, uint(courseID), uint(lessonID), delta)
	if err != nil {
		return middleware.ServiceErrorResponse(c, err)
	}

	if enrollment.Status == courseModels.EnrollmentCompleted {
		var crs courseModels.Course
		if dbErr := database.Database.Db.Where("id = ?", courseID).First(&crs).Error; dbErr == nil {
			utils.SendCourseCompletionEmail(user.Email, user.Name, crs.Title)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", fiber.Map{
		"enrollment": enrollment,
		"lesson":     fact,
	})
}

// GetCourseProgress gets the user's progress in a course
func GetCourseProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	enrollment, lessons, err := services.GetCourseProgress(database.Database.Db, userID, uint(courseID))
	if err != nil {
		return middleware.ServiceErrorResponse(c, err)
	}

	completedCount := 0
	for _, view := range lessons {
		if view.Progress != nil && view.Progress.Completed {
			completedCount++
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment":        enrollment,
		"lessons":           lessons,
		"completed_lessons": completedCount,
		"total_lessons":     len(lessons),
	})
}
