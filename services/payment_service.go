package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// Payment event kinds delivered by the checkout provider.
const (
	EventSessionCompleted = "checkout.session.completed"
	EventSessionExpired   = "checkout.session.expired"
)

// PaymentEvent is a verified, parsed provider notification. Signature checks
// happen at the HTTP boundary; by the time an event reaches this package it is
// trusted. Metadata is passed through opaquely.
type PaymentEvent struct {
	SessionID       string            `json:"session_id"`
	Kind            string            `json:"kind"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Metadata        map[string]string `json:"metadata"`
}

// CheckoutSession is the provider-side session reference handed back to the
// client for redirection.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// SessionOpener opens hosted checkout sessions with the payment provider.
type SessionOpener interface {
	OpenSession(amount float64, currency string, metadata map[string]string) (*CheckoutSession, error)
	CheckoutURL(sessionID string) string
}

// OpenPaymentSession opens (or returns the already-open) checkout session for
// a pending or previously failed enrollment. Re-invoking while a session is
// open returns the existing reference instead of creating a duplicate.
func OpenPaymentSession(db *gorm.DB, opener SessionOpener, enrollmentID, actorID uint) (*CheckoutSession, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("id = ?", enrollmentID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownEnrollment
			}
			return nil, err
		}
		if enrollment.UserID != actorID {
			return nil, ErrNotAuthorized
		}

		switch enrollment.PaymentStatus {
		case courseModels.PaymentPending, courseModels.PaymentFailed:
			// fall through and open (or reuse) a session
		default:
			// Free or already settled: there is nothing to pay for.
			return nil, ErrAlreadyEnrolled
		}

		if enrollment.PaymentStatus == courseModels.PaymentPending && enrollment.PaymentSessionID != "" {
			return &CheckoutSession{
				SessionID:   enrollment.PaymentSessionID,
				RedirectURL: opener.CheckoutURL(enrollment.PaymentSessionID),
			}, nil
		}

		session, err := opener.OpenSession(enrollment.Amount, enrollment.Currency, map[string]string{
			"enrollmentId": strconv.FormatUint(uint64(enrollment.ID), 10),
			"courseId":     strconv.FormatUint(uint64(enrollment.CourseID), 10),
			"userId":       strconv.FormatUint(uint64(enrollment.UserID), 10),
		})
		if err != nil {
			return nil, fmt.Errorf("open checkout session: %w", err)
		}

		ok, err := casUpdateEnrollment(db, &enrollment, map[string]interface{}{
			"payment_session_id": session.SessionID,
			"payment_status":     courseModels.PaymentPending,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			return session, nil
		}
	}
	return nil, ErrConcurrentModification
}

// HandlePaymentEvent applies one provider notification to the enrollment it
// references and reports the outcome (applied, duplicate, ignored, failed).
// Processing is idempotent: redelivering a settled session's completion event
// is a successful no-op, and a completion always wins over an expiry
// regardless of arrival order. Every consumed event is recorded in the
// gateway event log.
func HandlePaymentEvent(db *gorm.DB, event *PaymentEvent) (string, error) {
	if event == nil || event.SessionID == "" {
		return courseModels.EventOutcomeFailed, ErrInvalidEventPayload
	}
	if event.Kind != EventSessionCompleted && event.Kind != EventSessionExpired {
		return courseModels.EventOutcomeFailed, ErrInvalidEventPayload
	}

	outcome, err := applyPaymentEvent(db, event)
	logGatewayEvent(db, event, outcome)
	return outcome, err
}

func applyPaymentEvent(db *gorm.DB, event *PaymentEvent) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("payment_session_id = ?", event.SessionID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return courseModels.EventOutcomeFailed, ErrUnknownEnrollment
			}
			return courseModels.EventOutcomeFailed, err
		}

		switch event.Kind {
		case EventSessionCompleted:
			if enrollment.PaymentStatus == courseModels.PaymentCompleted {
				// Duplicate delivery. Acknowledge without touching anything.
				return courseModels.EventOutcomeDuplicate, nil
			}
			err := settleEnrollment(db, &enrollment, event.PaymentIntentID)
			if errors.Is(err, errVersionConflict) {
				continue
			}
			if err != nil {
				return courseModels.EventOutcomeFailed, err
			}
			return courseModels.EventOutcomeApplied, nil

		case EventSessionExpired:
			if enrollment.PaymentStatus != courseModels.PaymentPending {
				// Completion events take precedence over expiry events: a
				// session that already settled (or already failed) stays put.
				return courseModels.EventOutcomeIgnored, nil
			}
			ok, err := casUpdateEnrollment(db, &enrollment, map[string]interface{}{
				"payment_status": courseModels.PaymentFailed,
			})
			if err != nil {
				return courseModels.EventOutcomeFailed, err
			}
			if !ok {
				continue
			}
			return courseModels.EventOutcomeApplied, nil
		}
	}
	return courseModels.EventOutcomeFailed, ErrConcurrentModification
}

// settleEnrollment flips a settled payment into an active enrollment: payment
// status COMPLETED, transaction recorded, seat reserved and progress rows
// materialized, all in one transaction. A later session-expired event finds
// PaymentStatus already COMPLETED and backs off.
func settleEnrollment(db *gorm.DB, enrollment *courseModels.Enrollment, transactionID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := reserveSeat(tx, enrollment.CourseID); err != nil {
			return err
		}

		fields := map[string]interface{}{
			"payment_status": courseModels.PaymentCompleted,
			"transaction_id": transactionID,
			"status":         courseModels.EnrollmentActive,
		}

		// The access window starts when the payment settles, not when the
		// checkout was opened. The sweep may even have expired the record
		// while the session sat open; the learner still paid for the full
		// period.
		var crs courseModels.Course
		if err := tx.Where("id = ?", enrollment.CourseID).First(&crs).Error; err != nil {
			return err
		}
		if crs.AccessPeriodDays > 0 {
			fields["expires_at"] = time.Now().AddDate(0, 0, crs.AccessPeriodDays)
		}

		ok, err := casUpdateEnrollment(tx, enrollment, fields)
		if err != nil {
			return err
		}
		if !ok {
			return errVersionConflict
		}

		return materializeLessonProgress(tx, enrollment.ID, enrollment.CourseID)
	})
}

// logGatewayEvent appends the delivery to the audit log. Failures here are
// logged and swallowed: the log must never turn a processed event into a
// provider retry.
func logGatewayEvent(db *gorm.DB, event *PaymentEvent, outcome string) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[PAYMENT-WEBHOOK] Failed to marshal event payload: %v", err)
		payload = nil
	}

	record := courseModels.PaymentGatewayEvent{
		SessionID:       event.SessionID,
		EventKind:       event.Kind,
		PaymentIntentID: event.PaymentIntentID,
		Outcome:         outcome,
		Payload:         payload,
	}
	if id, ok := event.Metadata["enrollmentId"]; ok {
		if parsed, err := strconv.ParseUint(id, 10, 64); err == nil {
			record.EnrollmentID = uint(parsed)
		}
	}

	if err := db.Create(&record).Error; err != nil {
		log.Printf("[PAYMENT-WEBHOOK] Failed to write gateway event log for session %s: %v", event.SessionID, err)
	}
}

// ParsePaymentEvent decodes a verified webhook body into a PaymentEvent.
func ParsePaymentEvent(body []byte) (*PaymentEvent, error) {
	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, ErrInvalidEventPayload
	}
	if event.SessionID == "" || event.Kind == "" {
		return nil, ErrInvalidEventPayload
	}
	return &event, nil
}
