package services

import (
	"errors"
	"strings"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// maxRetries bounds the optimistic-concurrency retry loops. A conflict past
// this count surfaces as ErrConcurrentModification.
const maxRetries = 3

// Enroll creates the single enrollment record for a (user, course) pair.
// A zero resolved price activates immediately and reserves a seat; a priced
// course leaves the record awaiting settlement and takes no seat until the
// payment completes, so abandoned checkouts never count against capacity.
func Enroll(db *gorm.DB, userID, courseID uint) (*courseModels.Enrollment, error) {
	now := time.Now()

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = false AND is_published = true", courseID).First(&crs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotAvailable
		}
		return nil, err
	}

	var existing courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err == nil {
		return nil, ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	amount := crs.CurrentPrice(now)

	enrollment := courseModels.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
		Amount:     amount,
		Currency:   crs.Currency,
	}
	if crs.AccessPeriodDays > 0 {
		expires := now.AddDate(0, 0, crs.AccessPeriodDays)
		enrollment.ExpiresAt = &expires
	}

	if amount == 0 {
		// Free path: activate, take a seat and materialize progress rows in
		// one transaction.
		enrollment.Status = courseModels.EnrollmentActive
		enrollment.PaymentStatus = courseModels.PaymentFree

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := reserveSeat(tx, courseID); err != nil {
				return err
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return translateCreateError(err)
			}
			return materializeLessonProgress(tx, enrollment.ID, courseID)
		})
		if err != nil {
			return nil, err
		}
		return &enrollment, nil
	}

	// Priced path. The capacity check here is advisory only; the seat is
	// reserved atomically at settlement.
	if crs.MaxStudents > 0 && crs.EnrolledCount >= crs.MaxStudents {
		return nil, ErrCapacityExceeded
	}

	enrollment.Status = courseModels.EnrollmentPendingPayment
	enrollment.PaymentStatus = courseModels.PaymentPending

	if err := db.Create(&enrollment).Error; err != nil {
		return nil, translateCreateError(err)
	}
	return &enrollment, nil
}

// Cancel marks an enrollment cancelled. Learners may cancel their own
// enrollment, admins anyone's; a completed enrollment can never be cancelled.
func Cancel(db *gorm.DB, enrollmentID, actorID uint, actorRole string) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("id = ?", enrollmentID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownEnrollment
			}
			return err
		}

		if actorRole != models.RoleAdmin && enrollment.UserID != actorID {
			return ErrNotAuthorized
		}
		if enrollment.Status == courseModels.EnrollmentCompleted {
			return ErrNotAuthorized
		}
		if enrollment.Status == courseModels.EnrollmentCancelled {
			return nil
		}

		ok, err := casUpdateEnrollment(db, &enrollment, map[string]interface{}{
			"status": courseModels.EnrollmentCancelled,
		})
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrConcurrentModification
}

// ExpireEnrollments transitions active and pending-payment enrollments whose
// access window has lapsed to EXPIRED. Completed enrollments are never
// touched: completion is permanent even after the access period ends. The
// sweep is a blind conditional update, so re-running it is a no-op and it is
// safe to run concurrently.
func ExpireEnrollments(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&courseModels.Enrollment{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]string{courseModels.EnrollmentActive, courseModels.EnrollmentPendingPayment}, now).
		Updates(map[string]interface{}{
			"status":  courseModels.EnrollmentExpired,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

// GetEnrollment loads one enrollment, checking ownership unless the actor is
// an admin.
func GetEnrollment(db *gorm.DB, enrollmentID, actorID uint, actorRole string) (*courseModels.Enrollment, error) {
	var enrollment courseModels.Enrollment
	if err := db.Where("id = ?", enrollmentID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownEnrollment
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && enrollment.UserID != actorID {
		return nil, ErrNotAuthorized
	}
	return &enrollment, nil
}

// GetUserEnrollments lists all of a user's enrollments, newest first.
func GetUserEnrollments(db *gorm.DB, userID uint) ([]courseModels.Enrollment, error) {
	var enrollments []courseModels.Enrollment
	if err := db.Where("user_id = ?", userID).Order("created_at desc").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

// reserveSeat atomically takes one seat on the course. The condition and the
// increment travel in a single UPDATE so concurrent activations can never
// overshoot max_students.
func reserveSeat(tx *gorm.DB, courseID uint) error {
	result := tx.Model(&courseModels.Course{}).
		Where("id = ? AND (max_students = 0 OR enrolled_count < max_students)", courseID).
		UpdateColumn("enrolled_count", gorm.Expr("enrolled_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// casUpdateEnrollment applies fields to the enrollment only if its version is
// unchanged since it was read. Returns false when the write lost a race.
func casUpdateEnrollment(tx *gorm.DB, enrollment *courseModels.Enrollment, fields map[string]interface{}) (bool, error) {
	fields["version"] = enrollment.Version + 1
	result := tx.Model(&courseModels.Enrollment{}).
		Where("id = ? AND version = ?", enrollment.ID, enrollment.Version).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// translateCreateError maps a unique-constraint violation on the
// (user_id, course_id) index to ErrAlreadyEnrolled, so concurrent duplicate
// enroll calls fail cleanly instead of surfacing a driver error.
func translateCreateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyEnrolled
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") {
		return ErrAlreadyEnrolled
	}
	return err
}
