package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificateStore persists a rendered certificate artifact and returns its
// public URL. Rendering and storage live behind this interface; the engine
// only records the reference.
type CertificateStore interface {
	Store(enrollmentID uint, certificateNumber string) (string, error)
}

// IssueCertificate issues (or returns the already-issued) certificate for a
// fully completed enrollment. Only admins and the course's instructor may
// issue. Reissuing is idempotent unless force is set, which regenerates the
// artifact in place under the same certificate number.
func IssueCertificate(db *gorm.DB, store CertificateStore, enrollmentID, actorID uint, actorRole string, force bool) (*courseModels.Certificate, error) {
	var number, url string

	for attempt := 0; attempt < maxRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("id = ?", enrollmentID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownEnrollment
			}
			return nil, err
		}

		if err := authorizeIssuer(db, &enrollment, actorID, actorRole); err != nil {
			return nil, err
		}

		if enrollment.ProgressPercentage != 100 {
			return nil, ErrCourseNotCompleted
		}

		if enrollment.CertificateIssued && !force {
			var existing courseModels.Certificate
			if err := db.Where("enrollment_id = ? AND is_deleted = false", enrollmentID).First(&existing).Error; err == nil {
				return &existing, nil
			}
			// Issued flag without a record should not happen; fall through
			// and regenerate.
		}

		// Upload the artifact once per call, keyed by a stable number: a
		// version-conflict retry reuses the same upload, and regenerating an
		// existing certificate overwrites its artifact instead of orphaning
		// it in the store.
		if number == "" {
			var prior courseModels.Certificate
			lookupErr := db.Where("enrollment_id = ?", enrollmentID).First(&prior).Error
			if lookupErr == nil {
				number = prior.CertificateNumber
			} else if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				number = newCertificateNumber()
			} else {
				return nil, lookupErr
			}

			stored, err := store.Store(enrollment.ID, number)
			if err != nil {
				return nil, fmt.Errorf("store certificate artifact: %w", err)
			}
			url = stored
		}

		certificate := courseModels.Certificate{
			UserID:            enrollment.UserID,
			CourseID:          enrollment.CourseID,
			EnrollmentID:      enrollment.ID,
			CertificateURL:    url,
			CertificateNumber: number,
			IssuedAt:          time.Now(),
			IssuedBy:          actorID,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var existing courseModels.Certificate
			if err := tx.Where("enrollment_id = ?", enrollmentID).First(&existing).Error; err == nil {
				// Force regeneration replaces the artifact in place.
				existing.CertificateURL = url
				existing.CertificateNumber = number
				existing.IssuedAt = certificate.IssuedAt
				existing.IssuedBy = actorID
				existing.IsDeleted = false
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				certificate = existing
			} else if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&certificate).Error; err != nil {
					return err
				}
			} else {
				return err
			}

			ok, err := casUpdateEnrollment(tx, &enrollment, map[string]interface{}{
				"certificate_issued": true,
				"certificate_url":    url,
			})
			if err != nil {
				return err
			}
			if !ok {
				return errVersionConflict
			}
			return nil
		})

		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &certificate, nil
	}
	return nil, ErrConcurrentModification
}

// authorizeIssuer allows admins and the instructor who owns the course.
func authorizeIssuer(db *gorm.DB, enrollment *courseModels.Enrollment, actorID uint, actorRole string) error {
	if actorRole == models.RoleAdmin {
		return nil
	}
	if actorRole == models.RoleInstructor {
		var crs courseModels.Course
		if err := db.Where("id = ?", enrollment.CourseID).First(&crs).Error; err != nil {
			return ErrNotAuthorized
		}
		if crs.InstructorID == actorID {
			return nil
		}
	}
	return ErrNotAuthorized
}

// GetUserCertificates lists a user's issued certificates, newest first.
func GetUserCertificates(db *gorm.DB, userID uint) ([]courseModels.Certificate, error) {
	var certificates []courseModels.Certificate
	if err := db.Where("user_id = ? AND is_deleted = false", userID).
		Order("issued_at desc").Find(&certificates).Error; err != nil {
		return nil, err
	}
	return certificates, nil
}

func newCertificateNumber() string {
	return "CERT-" + strings.ToUpper(uuid.NewString()[:8]) + "-" + time.Now().Format("20060102")
}
