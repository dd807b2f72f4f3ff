package services

import "errors"

// Errors surfaced by the enrollment, payment, progress and certificate
// operations. Controllers translate these to HTTP statuses; everything else
// bubbles up as a storage error.
var (
	ErrAlreadyEnrolled        = errors.New("user already enrolled in this course")
	ErrCourseNotAvailable     = errors.New("course not found or not published")
	ErrCapacityExceeded       = errors.New("course has reached its enrollment capacity")
	ErrAccessDenied           = errors.New("enrollment does not grant lesson access")
	ErrUnknownEnrollment      = errors.New("enrollment not found")
	ErrNotAuthorized          = errors.New("actor is not allowed to perform this action")
	ErrCourseNotCompleted     = errors.New("course is not completed")
	ErrConcurrentModification = errors.New("enrollment was modified concurrently, retries exhausted")
	ErrInvalidEventPayload    = errors.New("payment event payload is invalid")
)

// errVersionConflict is internal: a compare-and-swap on an enrollment lost the
// race and the whole operation should be retried from a fresh read.
var errVersionConflict = errors.New("enrollment version conflict")
