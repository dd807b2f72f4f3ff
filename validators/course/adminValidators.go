package courseValidator

import (
	"lms/middleware"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title              string     `json:"title"`
			Description        string     `json:"description"`
			Price              float64    `json:"price"`
			DiscountPrice      float64    `json:"discountPrice"`
			DiscountValidUntil *time.Time `json:"discountValidUntil"`
			Currency           string     `json:"currency"`
			AccessPeriodDays   int        `json:"accessPeriodDays"`
			MaxStudents        int        `json:"maxStudents"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}
		if reqData.Price < 0 {
			errors["price"] = "Price cannot be negative!"
		}
		if reqData.DiscountPrice < 0 || (reqData.DiscountPrice > 0 && reqData.DiscountPrice >= reqData.Price) {
			errors["discountPrice"] = "Discount price must be lower than the price!"
		}
		if reqData.AccessPeriodDays < 0 {
			errors["accessPeriodDays"] = "Access period cannot be negative!"
		}
		if reqData.MaxStudents < 0 {
			errors["maxStudents"] = "Max students cannot be negative!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

func PublishCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, err := strconv.Atoi(strings.TrimSpace(c.Params("id")))
		if err != nil || courseID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func CreateLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, err := strconv.Atoi(strings.TrimSpace(c.Params("id")))
		if err != nil || courseID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		reqData := new(struct {
			Title        string `json:"title"`
			ContentType  string `json:"contentType"`
			VideoURL     string `json:"videoUrl"`
			TextContent  string `json:"textContent"`
			Duration     int    `json:"duration"`
			OrderIndex   int    `json:"orderIndex"`
			PassingScore *int   `json:"passingScore"`
			IsPublished  bool   `json:"isPublished"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}
		if reqData.ContentType != "" {
			switch reqData.ContentType {
			case "VIDEO", "TEXT", "QUIZ", "ASSIGNMENT":
			default:
				errors["contentType"] = "Content type must be VIDEO, TEXT, QUIZ or ASSIGNMENT!"
			}
		}
		if reqData.ContentType == "QUIZ" && reqData.PassingScore == nil {
			errors["passingScore"] = "Quiz lessons need a passing score!"
		}
		if reqData.PassingScore != nil && (*reqData.PassingScore < 0 || *reqData.PassingScore > 100) {
			errors["passingScore"] = "Passing score must be between 0 and 100!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}
