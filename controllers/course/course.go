package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published courses for learners
func GetAllCourses(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&courseModels.Course{}).Where("is_deleted = ? AND is_published = ?", false, true)

	var total int64
	db.Count(&total)

	var courses []courseModels.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetCourseDetails gets a published course with its lessons and the caller's
// enrollment, if any
func GetCourseDetails(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var lessons []courseModels.Lesson
	database.Database.Db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Order("order_index asc").Find(&lessons)

	// Check if user is enrolled
	var enrollment courseModels.Enrollment
	isEnrolled := database.Database.Db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error == nil

	response := fiber.Map{
		"course":        course,
		"lessons":       lessons,
		"is_enrolled":   isEnrolled,
		"current_price": course.CurrentPrice(time.Now()),
	}
	if isEnrolled {
		response["enrollment"] = enrollment
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", response)
}

// CreateCourse creates a draft course (admin/instructor)
func CreateCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedCourse").(*struct {
		Title              string     `json:"title"`
		Description        string     `json:"description"`
		Price              float64    `json:"price"`
		DiscountPrice      float64    `json:"discountPrice"`
		DiscountValidUntil *time.Time `json:"discountValidUntil"`
		Currency           string     `json:"currency"`
		AccessPeriodDays   int        `json:"accessPeriodDays"`
		MaxStudents        int        `json:"maxStudents"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	course := courseModels.Course{
		Title:              reqData.Title,
		Description:        reqData.Description,
		InstructorID:       userID,
		Price:              reqData.Price,
		DiscountPrice:      reqData.DiscountPrice,
		DiscountValidUntil: reqData.DiscountValidUntil,
		AccessPeriodDays:   reqData.AccessPeriodDays,
		MaxStudents:        reqData.MaxStudents,
	}
	if reqData.Currency != "" {
		course.Currency = reqData.Currency
	}

	if err := database.Database.Db.Create(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// PublishCourse flips a draft course to published (admin/instructor)
func PublishCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	role, _ := c.Locals("userRole").(string)

	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if role != models.RoleAdmin && course.InstructorID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not allowed to publish this course!", nil)
	}

	if err := database.Database.Db.Model(&course).Update("is_published", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", course)
}

// CreateLesson adds a lesson to a course (admin/instructor)
func CreateLesson(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	role, _ := c.Locals("userRole").(string)

	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if role != models.RoleAdmin && course.InstructorID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You are not allowed to modify this course!", nil)
	}

	reqData, ok := c.Locals("validatedLesson").(*struct {
		Title        string `json:"title"`
		ContentType  string `json:"contentType"`
		VideoURL     string `json:"videoUrl"`
		TextContent  string `json:"textContent"`
		Duration     int    `json:"duration"`
		OrderIndex   int    `json:"orderIndex"`
		PassingScore *int   `json:"passingScore"`
		IsPublished  bool   `json:"isPublished"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	lesson := courseModels.Lesson{
		CourseID:     uint(courseID),
		Title:        reqData.Title,
		ContentType:  reqData.ContentType,
		VideoURL:     reqData.VideoURL,
		TextContent:  reqData.TextContent,
		Duration:     reqData.Duration,
		OrderIndex:   reqData.OrderIndex,
		PassingScore: reqData.PassingScore,
		IsPublished:  reqData.IsPublished,
	}
	if lesson.ContentType == "" {
		lesson.ContentType = courseModels.LessonTypeVideo
	}

	if err := database.Database.Db.Create(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}
