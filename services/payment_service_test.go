package services

import (
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openPendingCheckout enrolls a user on a priced course and opens a checkout
// session for it.
func openPendingCheckout(t *testing.T, db *gorm.DB, opts courseOpts) (*models.User, *courseModels.Course, *CheckoutSession, *courseModels.Enrollment) {
	t.Helper()
	if opts.price == 0 {
		opts.price = 49.99
	}
	if opts.lessons == 0 {
		opts.lessons = 3
	}
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, opts)

	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	session, err := OpenPaymentSession(db, &stubGateway{}, enrollment.ID, user.ID)
	require.NoError(t, err)

	return user, crs, session, reloadEnrollment(t, db, enrollment.ID)
}

func TestOpenPaymentSessionReusesOpenSession(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{price: 30, lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	gateway := &stubGateway{}
	first, err := OpenPaymentSession(db, gateway, enrollment.ID, user.ID)
	require.NoError(t, err)

	second, err := OpenPaymentSession(db, gateway, enrollment.ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, gateway.opened)
}

func TestOpenPaymentSessionAuthorization(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	stranger := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{price: 30, lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	_, err = OpenPaymentSession(db, &stubGateway{}, enrollment.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = OpenPaymentSession(db, &stubGateway{}, 999, user.ID)
	assert.ErrorIs(t, err, ErrUnknownEnrollment)
}

func TestOpenPaymentSessionFreeEnrollment(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	// Nothing to pay for on a free enrollment.
	_, err = OpenPaymentSession(db, &stubGateway{}, enrollment.ID, user.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestOpenPaymentSessionGatewayFailure(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{price: 30, lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	_, err = OpenPaymentSession(db, &stubGateway{fail: true}, enrollment.ID, user.ID)
	require.Error(t, err)

	// Nothing was stored; the next attempt opens a fresh session.
	assert.Empty(t, reloadEnrollment(t, db, enrollment.ID).PaymentSessionID)
	session, err := OpenPaymentSession(db, &stubGateway{}, enrollment.ID, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
}

func TestHandleCompletedEventSettlesEnrollment(t *testing.T) {
	db := setupTestDB(t)
	_, crs, session, enrollment := openPendingCheckout(t, db, courseOpts{lessons: 3})

	outcome, err := HandlePaymentEvent(db, &PaymentEvent{
		SessionID:       session.SessionID,
		Kind:            EventSessionCompleted,
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)
	assert.Equal(t, courseModels.EventOutcomeApplied, outcome)

	settled := reloadEnrollment(t, db, enrollment.ID)
	assert.Equal(t, courseModels.EnrollmentActive, settled.Status)
	assert.Equal(t, courseModels.PaymentCompleted, settled.PaymentStatus)
	assert.Equal(t, "pi_123", settled.TransactionID)

	// Settlement takes the seat and materializes the progress rows.
	assert.Equal(t, 1, reloadCourse(t, db, crs.ID).EnrolledCount)
	var facts int64
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).Count(&facts).Error)
	assert.Equal(t, int64(3), facts)
}

func TestHandleCompletedEventIdempotent(t *testing.T) {
	db := setupTestDB(t)
	_, crs, session, enrollment := openPendingCheckout(t, db, courseOpts{})

	event := &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionCompleted, PaymentIntentID: "pi_1"}

	outcome, err := HandlePaymentEvent(db, event)
	require.NoError(t, err)
	require.Equal(t, courseModels.EventOutcomeApplied, outcome)

	// Redeliveries acknowledge without changing anything.
	for i := 0; i < 3; i++ {
		outcome, err = HandlePaymentEvent(db, event)
		require.NoError(t, err)
		assert.Equal(t, courseModels.EventOutcomeDuplicate, outcome)
	}

	assert.Equal(t, 1, reloadCourse(t, db, crs.ID).EnrolledCount)
	assert.Equal(t, courseModels.PaymentCompleted, reloadEnrollment(t, db, enrollment.ID).PaymentStatus)

	// Every delivery lands in the audit log.
	var logged int64
	require.NoError(t, db.Model(&courseModels.PaymentGatewayEvent{}).
		Where("session_id = ?", session.SessionID).Count(&logged).Error)
	assert.Equal(t, int64(4), logged)
}

func TestHandleExpiredAfterCompleted(t *testing.T) {
	db := setupTestDB(t)
	_, _, session, enrollment := openPendingCheckout(t, db, courseOpts{})

	outcome, err := HandlePaymentEvent(db, &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionCompleted})
	require.NoError(t, err)
	require.Equal(t, courseModels.EventOutcomeApplied, outcome)

	// Completion wins over expiry regardless of delivery order.
	outcome, err = HandlePaymentEvent(db, &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionExpired})
	require.NoError(t, err)
	assert.Equal(t, courseModels.EventOutcomeIgnored, outcome)

	settled := reloadEnrollment(t, db, enrollment.ID)
	assert.Equal(t, courseModels.EnrollmentActive, settled.Status)
	assert.Equal(t, courseModels.PaymentCompleted, settled.PaymentStatus)
}

func TestHandleExpiredWhilePending(t *testing.T) {
	db := setupTestDB(t)
	_, crs, session, enrollment := openPendingCheckout(t, db, courseOpts{})

	outcome, err := HandlePaymentEvent(db, &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionExpired})
	require.NoError(t, err)
	assert.Equal(t, courseModels.EventOutcomeApplied, outcome)

	failed := reloadEnrollment(t, db, enrollment.ID)
	assert.Equal(t, courseModels.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, courseModels.EnrollmentPendingPayment, failed.Status)
	assert.Equal(t, 0, reloadCourse(t, db, crs.ID).EnrolledCount)

	// A late completion still settles: the learner did pay.
	outcome, err = HandlePaymentEvent(db, &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionCompleted, PaymentIntentID: "pi_late"})
	require.NoError(t, err)
	assert.Equal(t, courseModels.EventOutcomeApplied, outcome)
	assert.Equal(t, courseModels.EnrollmentActive, reloadEnrollment(t, db, enrollment.ID).Status)
}

func TestHandleCompletedEventAfterSweepRestartsWindow(t *testing.T) {
	db := setupTestDB(t)
	_, crs, session, enrollment := openPendingCheckout(t, db, courseOpts{accessPeriodDays: 30})

	// The checkout sat open long enough for the sweep to expire the record.
	require.NoError(t, db.Model(enrollment).UpdateColumn("expires_at", time.Now().Add(-time.Hour)).Error)
	swept, err := ExpireEnrollments(db, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), swept)
	require.Equal(t, courseModels.EnrollmentExpired, reloadEnrollment(t, db, enrollment.ID).Status)

	// The learner still paid: settlement activates with a fresh access window
	// instead of an already-lapsed one.
	outcome, err := HandlePaymentEvent(db, &PaymentEvent{SessionID: session.SessionID, Kind: EventSessionCompleted, PaymentIntentID: "pi_slow"})
	require.NoError(t, err)
	assert.Equal(t, courseModels.EventOutcomeApplied, outcome)

	settled := reloadEnrollment(t, db, enrollment.ID)
	assert.Equal(t, courseModels.EnrollmentActive, settled.Status)
	assert.Equal(t, courseModels.PaymentCompleted, settled.PaymentStatus)
	require.NotNil(t, settled.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *settled.ExpiresAt, time.Minute)
	assert.True(t, settled.AccessValid(time.Now()))
	assert.Equal(t, 1, reloadCourse(t, db, crs.ID).EnrolledCount)
}

func TestHandleEventUnknownSession(t *testing.T) {
	db := setupTestDB(t)

	outcome, err := HandlePaymentEvent(db, &PaymentEvent{SessionID: "cs_missing", Kind: EventSessionCompleted})
	assert.ErrorIs(t, err, ErrUnknownEnrollment)
	assert.Equal(t, courseModels.EventOutcomeFailed, outcome)

	// Even a dead-letter delivery is recorded.
	var logged int64
	require.NoError(t, db.Model(&courseModels.PaymentGatewayEvent{}).
		Where("session_id = ?", "cs_missing").Count(&logged).Error)
	assert.Equal(t, int64(1), logged)
}

func TestHandleEventInvalidPayload(t *testing.T) {
	db := setupTestDB(t)

	outcome, err := HandlePaymentEvent(db, nil)
	assert.ErrorIs(t, err, ErrInvalidEventPayload)
	assert.Equal(t, courseModels.EventOutcomeFailed, outcome)

	outcome, err = HandlePaymentEvent(db, &PaymentEvent{SessionID: "cs_1", Kind: "checkout.session.unknown"})
	assert.ErrorIs(t, err, ErrInvalidEventPayload)
	assert.Equal(t, courseModels.EventOutcomeFailed, outcome)
}

func TestParsePaymentEvent(t *testing.T) {
	event, err := ParsePaymentEvent([]byte(`{"session_id":"cs_9","kind":"checkout.session.completed","payment_intent_id":"pi_9","metadata":{"enrollmentId":"4"}}`))
	require.NoError(t, err)
	assert.Equal(t, "cs_9", event.SessionID)
	assert.Equal(t, EventSessionCompleted, event.Kind)
	assert.Equal(t, "4", event.Metadata["enrollmentId"])

	_, err = ParsePaymentEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidEventPayload)

	_, err = ParsePaymentEvent([]byte(`{"kind":"checkout.session.completed"}`))
	assert.ErrorIs(t, err, ErrInvalidEventPayload)
}
