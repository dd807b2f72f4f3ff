package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// IssueCertificate issues the completion certificate for an enrollment
// (admin or course instructor). Reissuing returns the existing certificate
// unless force=true is passed.
func IssueCertificate(c *fiber.Ctx) error {
	actorID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	role, _ := c.Locals("userRole").(string)

	enrollmentID := c.Locals("enrollmentID").(int)
	force := c.QueryBool("force", false)

	certificate, err := services.IssueCertificate(
		database.Database.Db,
		utils.NewCertificateStorage(),
		uint(enrollmentID),
		actorID,
		role,
		force,
	)
	if err != nil {
		return middleware.ServiceErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate issued successfully!", certificate)
}

// GetUserCertificates gets all certificates for the current user
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	certificates, err := services.GetUserCertificates(database.Database.Db, userID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": certificates,
		"total":        len(certificates),
	})
}
