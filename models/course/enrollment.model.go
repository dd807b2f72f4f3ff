package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment status enum values
const (
	EnrollmentPendingPayment = "PENDING_PAYMENT"
	EnrollmentActive         = "ACTIVE"
	EnrollmentCompleted      = "COMPLETED"
	EnrollmentCancelled      = "CANCELLED"
	EnrollmentExpired        = "EXPIRED"
)

// Payment status enum values
const (
	PaymentPending   = "PENDING"
	PaymentFree      = "FREE"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

// Enrollment tracks a user's enrollment in a course with payment and progress state.
// There is exactly one record per (user, course) pair; cancellation is a status
// change, never a delete.
type Enrollment struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID uint `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`

	Status        string `json:"status" gorm:"type:varchar(20);default:'PENDING_PAYMENT'"`
	PaymentStatus string `json:"payment_status" gorm:"type:varchar(20);default:'PENDING'"`

	// Progress is a whole percentage, floor(100 * completed / total).
	ProgressPercentage int `json:"progress_percentage" gorm:"default:0"`

	EnrolledAt     time.Time  `json:"enrolled_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`

	Amount           float64 `json:"amount" gorm:"default:0"`
	Currency         string  `json:"currency" gorm:"type:varchar(10);default:'INR'"`
	PaymentSessionID string  `json:"payment_session_id" gorm:"index"`
	TransactionID    string  `json:"transaction_id"`

	CertificateIssued bool   `json:"certificate_issued" gorm:"default:false"`
	CertificateURL    string `json:"certificate_url"`

	// Version guards every read-modify-write against lost updates.
	Version uint `json:"-" gorm:"default:0"`

	IsDeleted bool `gorm:"default:false"`
}

// AccessValid reports whether the enrollment grants lesson access at the
// given time: the learner must be active, settled (or free), and inside the
// access window.
func (e *Enrollment) AccessValid(now time.Time) bool {
	if e.Status != EnrollmentActive {
		return false
	}
	if e.PaymentStatus != PaymentFree && e.PaymentStatus != PaymentCompleted {
		return false
	}
	if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
		return false
	}
	return true
}
