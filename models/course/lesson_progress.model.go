package course

import (
	"time"

	"gorm.io/gorm"
)

// LessonProgress tracks a learner's progress for one lesson under one enrollment.
// Rows are materialized for all published lessons when the enrollment activates;
// lessons added to the course later get a row lazily on first activity.
type LessonProgress struct {
	gorm.Model
	EnrollmentID uint `json:"enrollment_id" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson"`
	LessonID     uint `json:"lesson_id" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`

	WatchTime    int `json:"watch_time" gorm:"default:0"`    // seconds, monotonic
	LastPosition int `json:"last_position" gorm:"default:0"` // seconds, last write wins

	QuizScore           *int `json:"quiz_score"`
	QuizAttempts        int  `json:"quiz_attempts" gorm:"default:0"`
	AssignmentSubmitted bool `json:"assignment_submitted" gorm:"default:false"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
