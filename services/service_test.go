package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database for one test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&courseModels.Course{},
		&courseModels.Lesson{},
		&courseModels.Enrollment{},
		&courseModels.LessonProgress{},
		&courseModels.Certificate{},
		&courseModels.PaymentGatewayEvent{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := models.User{
		Name:     "Test User",
		Email:    fmt.Sprintf("user%d@test.io", time.Now().UnixNano()),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

type courseOpts struct {
	price              float64
	discountPrice      float64
	discountValidUntil *time.Time
	accessPeriodDays   int
	maxStudents        int
	instructorID       uint
	lessons            int
}

func createCourse(t *testing.T, db *gorm.DB, opts courseOpts) *courseModels.Course {
	t.Helper()
	crs := courseModels.Course{
		Title:              "Go from Zero",
		InstructorID:       opts.instructorID,
		Price:              opts.price,
		DiscountPrice:      opts.discountPrice,
		DiscountValidUntil: opts.discountValidUntil,
		AccessPeriodDays:   opts.accessPeriodDays,
		MaxStudents:        opts.maxStudents,
		IsPublished:        true,
	}
	require.NoError(t, db.Create(&crs).Error)

	for i := 0; i < opts.lessons; i++ {
		lesson := courseModels.Lesson{
			CourseID:    crs.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			ContentType: courseModels.LessonTypeVideo,
			OrderIndex:  i,
			IsPublished: true,
		}
		require.NoError(t, db.Create(&lesson).Error)
	}
	return &crs
}

func courseLessons(t *testing.T, db *gorm.DB, courseID uint) []courseModels.Lesson {
	t.Helper()
	var lessons []courseModels.Lesson
	require.NoError(t, db.Where("course_id = ?", courseID).Order("order_index asc").Find(&lessons).Error)
	return lessons
}

func reloadEnrollment(t *testing.T, db *gorm.DB, id uint) *courseModels.Enrollment {
	t.Helper()
	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("id = ?", id).First(&enrollment).Error)
	return &enrollment
}

func reloadCourse(t *testing.T, db *gorm.DB, id uint) *courseModels.Course {
	t.Helper()
	var crs courseModels.Course
	require.NoError(t, db.Where("id = ?", id).First(&crs).Error)
	return &crs
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// completeAllLessons drives an active enrollment to 100% through the normal
// progress path.
func completeAllLessons(t *testing.T, db *gorm.DB, userID, courseID uint) *courseModels.Enrollment {
	t.Helper()
	var enrollment *courseModels.Enrollment
	for _, lesson := range courseLessons(t, db, courseID) {
		var err error
		enrollment, _, err = UpdateProgress(db, userID, courseID, lesson.ID, &ProgressDelta{Completed: boolPtr(true)})
		require.NoError(t, err)
	}
	return enrollment
}

// stubGateway is an in-memory SessionOpener.
type stubGateway struct {
	opened int
	fail   bool
}

func (s *stubGateway) OpenSession(amount float64, currency string, metadata map[string]string) (*CheckoutSession, error) {
	if s.fail {
		return nil, fmt.Errorf("gateway unavailable")
	}
	s.opened++
	return &CheckoutSession{
		SessionID:   fmt.Sprintf("cs_test_%d", s.opened),
		RedirectURL: fmt.Sprintf("https://pay.test/cs_test_%d", s.opened),
	}, nil
}

func (s *stubGateway) CheckoutURL(sessionID string) string {
	return "https://pay.test/" + sessionID
}

// stubCertStore is an in-memory CertificateStore.
type stubCertStore struct {
	stored  int
	numbers []string
}

func (s *stubCertStore) Store(enrollmentID uint, certificateNumber string) (string, error) {
	s.stored++
	s.numbers = append(s.numbers, certificateNumber)
	return fmt.Sprintf("https://certs.test/%d/%s.pdf", enrollmentID, certificateNumber), nil
}
