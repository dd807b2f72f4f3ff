package utils

import (
	"log"
	"time"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"

	"github.com/robfig/cron/v3"
)

// InitializeEnrollmentScheduler sets up the daily enrollment expiry jobs
func InitializeEnrollmentScheduler() {
	log.Println("[ENROLLMENT-SCHEDULER] Initializing enrollment scheduler...")

	c := cron.New()

	// Run daily at 2 AM: sweep lapsed enrollments, then remind the ones
	// expiring within 3 days.
	c.AddFunc("0 2 * * *", func() {
		log.Println("[ENROLLMENT-SCHEDULER] Running daily enrollment check...")
		SweepExpiredEnrollments()
		ProcessExpiringEnrollments()
	})

	c.Start()
	log.Println("[ENROLLMENT-SCHEDULER] Enrollment scheduler started - runs daily at 2 AM")
}

// SweepExpiredEnrollments expires enrollments whose access window has lapsed
func SweepExpiredEnrollments() {
	count, err := services.ExpireEnrollments(database.Database.Db, time.Now())
	if err != nil {
		log.Printf("[ENROLLMENT-SCHEDULER] Error expiring enrollments: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[ENROLLMENT-SCHEDULER] Expired %d enrollments", count)
	}
}

// ProcessExpiringEnrollments sends reminder emails for active enrollments
// expiring within 3 days
func ProcessExpiringEnrollments() {
	db := database.Database.Db
	now := time.Now()
	threeDaysFromNow := now.AddDate(0, 0, 3)

	var expiring []courseModels.Enrollment
	if err := db.
		Where("status = ? AND expires_at IS NOT NULL", courseModels.EnrollmentActive).
		Where("expires_at BETWEEN ? AND ?", now, threeDaysFromNow).
		Find(&expiring).Error; err != nil {
		log.Printf("[ENROLLMENT-SCHEDULER] Error fetching expiring enrollments: %v", err)
		return
	}

	log.Printf("[ENROLLMENT-SCHEDULER] Found %d enrollments expiring soon", len(expiring))

	for _, enrollment := range expiring {
		var user models.User
		if err := db.Where("id = ?", enrollment.UserID).First(&user).Error; err != nil {
			log.Printf("[ENROLLMENT-SCHEDULER] Error fetching user %d: %v", enrollment.UserID, err)
			continue
		}

		var crs courseModels.Course
		if err := db.Where("id = ?", enrollment.CourseID).First(&crs).Error; err != nil {
			continue
		}

		SendAccessExpiryReminder(user.Email, user.Name, crs.Title, enrollment.ExpiresAt)
		log.Printf("[ENROLLMENT-SCHEDULER] Sent expiry reminder for enrollment %d to %s", enrollment.ID, user.Email)
	}
}
