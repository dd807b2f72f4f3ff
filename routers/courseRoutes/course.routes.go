package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all course, enrollment and progress routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Course listing and details (published courses)
	courseGroup.Get("/list", middleware.JWTMiddleware, controllers.GetAllCourses)
	courseGroup.Get("/:id", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseDetails)

	// Enrollment
	courseGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.EnrollCourse(), controllers.EnrollInCourse)

	// Progress tracking
	courseGroup.Put("/:course_id/lesson/:lesson_id/progress", middleware.JWTMiddleware, validators.UpdateLessonProgress(), controllers.UpdateLessonProgress)
	courseGroup.Get("/:id/progress", middleware.JWTMiddleware, validators.GetCourseProgress(), controllers.GetCourseProgress)

	// Course management (admin or instructor)
	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleInstructor)
	courseGroup.Post("/", middleware.JWTMiddleware, adminOnly, validators.CreateCourse(), controllers.CreateCourse)
	courseGroup.Put("/:id/publish", middleware.JWTMiddleware, adminOnly, validators.PublishCourse(), controllers.PublishCourse)
	courseGroup.Post("/:id/lesson", middleware.JWTMiddleware, adminOnly, validators.CreateLesson(), controllers.CreateLesson)

	// Enrollment management
	enrollmentGroup := app.Group("/enrollment")
	enrollmentGroup.Delete("/:id", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.CancelEnrollment)
	enrollmentGroup.Post("/:id/certificate", middleware.JWTMiddleware, adminOnly, validators.EnrollmentID(), controllers.IssueCertificate)

	// User enrollments and certificates
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, controllers.GetUserEnrollmentsList)
	userGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)
}
