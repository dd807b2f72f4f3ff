package services

import (
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollFreeCourse(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{accessPeriodDays: 365, lessons: 4})

	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	assert.Equal(t, courseModels.EnrollmentActive, enrollment.Status)
	assert.Equal(t, courseModels.PaymentFree, enrollment.PaymentStatus)
	assert.Equal(t, float64(0), enrollment.Amount)
	assert.Equal(t, 0, enrollment.ProgressPercentage)
	require.NotNil(t, enrollment.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *enrollment.ExpiresAt, time.Minute)

	// Seat taken and progress rows materialized for every lesson.
	assert.Equal(t, 1, reloadCourse(t, db, crs.ID).EnrolledCount)
	var facts int64
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).Count(&facts).Error)
	assert.Equal(t, int64(4), facts)
}

func TestEnrollPricedCourseWithDiscount(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	until := time.Now().Add(time.Hour)
	crs := createCourse(t, db, courseOpts{
		price:              99.99,
		discountPrice:      49.99,
		discountValidUntil: &until,
		lessons:            3,
	})

	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	// Discount window open: the discounted price is captured on the record.
	assert.Equal(t, 49.99, enrollment.Amount)
	assert.Equal(t, courseModels.EnrollmentPendingPayment, enrollment.Status)
	assert.Equal(t, courseModels.PaymentPending, enrollment.PaymentStatus)

	// No seat and no progress rows until the payment settles.
	assert.Equal(t, 0, reloadCourse(t, db, crs.ID).EnrolledCount)
	var facts int64
	require.NoError(t, db.Model(&courseModels.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).Count(&facts).Error)
	assert.Equal(t, int64(0), facts)
}

func TestEnrollExpiredDiscount(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	until := time.Now().Add(-time.Hour)
	crs := createCourse(t, db, courseOpts{
		price:              99.99,
		discountPrice:      49.99,
		discountValidUntil: &until,
		lessons:            1,
	})

	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 99.99, enrollment.Amount)
}

func TestEnrollDuplicate(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 2})

	_, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	_, err = Enroll(db, user.ID, crs.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollDuplicateCreateRace(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})

	_, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	// A concurrent enroll that slipped past the pre-check read lands on the
	// (user, course) unique index; the driver error must surface as
	// ErrAlreadyEnrolled, never as a raw storage error.
	duplicate := courseModels.Enrollment{
		UserID:        user.ID,
		CourseID:      crs.ID,
		EnrolledAt:    time.Now(),
		Status:        courseModels.EnrollmentActive,
		PaymentStatus: courseModels.PaymentFree,
	}
	createErr := db.Create(&duplicate).Error
	require.Error(t, createErr)
	assert.ErrorIs(t, translateCreateError(createErr), ErrAlreadyEnrolled)

	var count int64
	require.NoError(t, db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCasUpdateStaleVersionLoses(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	stale := *enrollment

	// First writer wins and bumps the version.
	ok, err := casUpdateEnrollment(db, enrollment, map[string]interface{}{
		"status": courseModels.EnrollmentCancelled,
	})
	require.NoError(t, err)
	require.True(t, ok)

	// The stale copy's write must lose and leave the record untouched.
	ok, err = casUpdateEnrollment(db, &stale, map[string]interface{}{
		"status": courseModels.EnrollmentExpired,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	current := reloadEnrollment(t, db, enrollment.ID)
	assert.Equal(t, courseModels.EnrollmentCancelled, current.Status)
	assert.Equal(t, enrollment.Version+1, current.Version)
}

func TestEnrollUnpublishedCourse(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	require.NoError(t, db.Model(crs).UpdateColumn("is_published", false).Error)

	_, err := Enroll(db, user.ID, crs.ID)
	assert.ErrorIs(t, err, ErrCourseNotAvailable)
}

func TestEnrollCapacityExceeded(t *testing.T) {
	db := setupTestDB(t)
	crs := createCourse(t, db, courseOpts{maxStudents: 1, lessons: 1})

	first := createUser(t, db, models.RoleUser)
	_, err := Enroll(db, first.ID, crs.ID)
	require.NoError(t, err)

	second := createUser(t, db, models.RoleUser)
	_, err = Enroll(db, second.ID, crs.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 1, reloadCourse(t, db, crs.ID).EnrolledCount)
}

func TestCancelOwnEnrollment(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	require.NoError(t, Cancel(db, enrollment.ID, user.ID, models.RoleUser))
	assert.Equal(t, courseModels.EnrollmentCancelled, reloadEnrollment(t, db, enrollment.ID).Status)

	// Cancelling an already cancelled enrollment is a no-op.
	require.NoError(t, Cancel(db, enrollment.ID, user.ID, models.RoleUser))
}

func TestCancelAuthorization(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, models.RoleUser)
	stranger := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	enrollment, err := Enroll(db, owner.ID, crs.ID)
	require.NoError(t, err)

	err = Cancel(db, enrollment.ID, stranger.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Admins may cancel anyone's enrollment.
	require.NoError(t, Cancel(db, enrollment.ID, admin.ID, models.RoleAdmin))
}

func TestCancelCompletedEnrollment(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 2})
	_, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)

	enrollment := completeAllLessons(t, db, user.ID, crs.ID)
	require.Equal(t, courseModels.EnrollmentCompleted, enrollment.Status)

	err = Cancel(db, enrollment.ID, user.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCancelUnknownEnrollment(t *testing.T) {
	db := setupTestDB(t)
	err := Cancel(db, 999, 1, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrUnknownEnrollment)
}

func TestExpireEnrollments(t *testing.T) {
	db := setupTestDB(t)
	crs := createCourse(t, db, courseOpts{lessons: 2})
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lapsed := createUser(t, db, models.RoleUser)
	lapsedEnrollment, err := Enroll(db, lapsed.ID, crs.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(lapsedEnrollment).UpdateColumn("expires_at", past).Error)

	current := createUser(t, db, models.RoleUser)
	currentEnrollment, err := Enroll(db, current.ID, crs.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(currentEnrollment).UpdateColumn("expires_at", future).Error)

	// Completion survives the access window lapsing.
	finisher := createUser(t, db, models.RoleUser)
	_, err = Enroll(db, finisher.ID, crs.ID)
	require.NoError(t, err)
	finished := completeAllLessons(t, db, finisher.ID, crs.ID)
	require.NoError(t, db.Model(finished).UpdateColumn("expires_at", past).Error)

	swept, err := ExpireEnrollments(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	assert.Equal(t, courseModels.EnrollmentExpired, reloadEnrollment(t, db, lapsedEnrollment.ID).Status)
	assert.Equal(t, courseModels.EnrollmentActive, reloadEnrollment(t, db, currentEnrollment.ID).Status)
	assert.Equal(t, courseModels.EnrollmentCompleted, reloadEnrollment(t, db, finished.ID).Status)

	// Re-running the sweep is a no-op.
	swept, err = ExpireEnrollments(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), swept)
}

func TestExpireSweepCatchesAbandonedCheckout(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{price: 20, lessons: 1})
	enrollment, err := Enroll(db, user.ID, crs.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(enrollment).UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	swept, err := ExpireEnrollments(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)
	assert.Equal(t, courseModels.EnrollmentExpired, reloadEnrollment(t, db, enrollment.ID).Status)
}

func TestGetEnrollmentOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, models.RoleUser)
	stranger := createUser(t, db, models.RoleUser)
	crs := createCourse(t, db, courseOpts{lessons: 1})
	enrollment, err := Enroll(db, owner.ID, crs.ID)
	require.NoError(t, err)

	got, err := GetEnrollment(db, enrollment.ID, owner.ID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, enrollment.ID, got.ID)

	_, err = GetEnrollment(db, enrollment.ID, stranger.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = GetEnrollment(db, enrollment.ID, stranger.ID, models.RoleAdmin)
	require.NoError(t, err)
}
