package services

import (
	"errors"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressDelta carries one progress update for a single lesson. Nil fields
// are left untouched. Completed and WatchTime apply monotonically,
// LastPosition and QuizScore last-write-wins; there is no averaging anywhere.
type ProgressDelta struct {
	Completed           *bool `json:"completed"`
	WatchTime           *int  `json:"watch_time" validate:"omitempty,min=0"`
	LastPosition        *int  `json:"last_position" validate:"omitempty,min=0"`
	QuizScore           *int  `json:"quiz_score" validate:"omitempty,min=0,max=100"`
	AssignmentSubmitted *bool `json:"assignment_submitted"`
}

// LessonProgressView pairs a lesson with the learner's fact for it.
type LessonProgressView struct {
	Lesson   courseModels.Lesson          `json:"lesson"`
	Progress *courseModels.LessonProgress `json:"progress,omitempty"`
}

// UpdateProgress applies a lesson progress delta and recomputes the
// enrollment's aggregate percentage from the full lesson set, both inside one
// transaction: no observer ever sees the fact without the aggregate or vice
// versa. Reaching 100% flips the enrollment to COMPLETED exactly once;
// completed_at never changes afterwards because a completed enrollment stops
// accepting activity.
func UpdateProgress(db *gorm.DB, userID, courseID, lessonID uint, delta *ProgressDelta) (*courseModels.Enrollment, *courseModels.LessonProgress, error) {
	now := time.Now()

	for attempt := 0; attempt < maxRetries; attempt++ {
		var enrollment courseModels.Enrollment
		if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrUnknownEnrollment
			}
			return nil, nil, err
		}
		if !enrollment.AccessValid(now) {
			return nil, nil, ErrAccessDenied
		}

		var lesson courseModels.Lesson
		if err := db.Where("id = ? AND course_id = ? AND is_deleted = false AND is_published = true", lessonID, courseID).First(&lesson).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrCourseNotAvailable
			}
			return nil, nil, err
		}

		var fact courseModels.LessonProgress
		err := db.Transaction(func(tx *gorm.DB) error {
			// Lazy-create the fact for lessons added after activation.
			if err := tx.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessonID).First(&fact).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				fact = courseModels.LessonProgress{EnrollmentID: enrollment.ID, LessonID: lessonID}
			}

			applyDelta(&fact, &lesson, delta, now)

			if err := tx.Save(&fact).Error; err != nil {
				return err
			}

			percentage, err := computeProgress(tx, enrollment.ID, courseID)
			if err != nil {
				return err
			}

			fields := map[string]interface{}{
				"progress_percentage": percentage,
				"last_accessed_at":    now,
			}
			if percentage == 100 && enrollment.Status != courseModels.EnrollmentCompleted {
				fields["status"] = courseModels.EnrollmentCompleted
				fields["completed_at"] = now
			}

			ok, err := casUpdateEnrollment(tx, &enrollment, fields)
			if err != nil {
				return err
			}
			if !ok {
				// Roll back the fact write too; the whole update re-runs.
				return errVersionConflict
			}

			enrollment.ProgressPercentage = percentage
			enrollment.LastAccessedAt = &now
			if percentage == 100 && enrollment.Status != courseModels.EnrollmentCompleted {
				enrollment.Status = courseModels.EnrollmentCompleted
				enrollment.CompletedAt = &now
			}
			return nil
		})

		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return &enrollment, &fact, nil
	}
	return nil, nil, ErrConcurrentModification
}

// applyDelta merges one delta into a lesson progress fact.
func applyDelta(fact *courseModels.LessonProgress, lesson *courseModels.Lesson, delta *ProgressDelta, now time.Time) {
	if delta == nil {
		return
	}

	if delta.WatchTime != nil && *delta.WatchTime > fact.WatchTime {
		fact.WatchTime = *delta.WatchTime
	}
	if delta.LastPosition != nil {
		fact.LastPosition = *delta.LastPosition
	}
	if delta.AssignmentSubmitted != nil && *delta.AssignmentSubmitted && lesson.ContentType == courseModels.LessonTypeAssignment {
		fact.AssignmentSubmitted = true
	}

	if delta.QuizScore != nil && lesson.ContentType == courseModels.LessonTypeQuiz {
		fact.QuizAttempts++
		fact.QuizScore = delta.QuizScore
		if lesson.PassingScore != nil && *delta.QuizScore >= *lesson.PassingScore {
			markCompleted(fact, now)
		}
	}

	// Completion is monotonic: a lesson once completed stays completed.
	if delta.Completed != nil && *delta.Completed {
		markCompleted(fact, now)
	}
}

func markCompleted(fact *courseModels.LessonProgress, now time.Time) {
	if fact.Completed {
		return
	}
	fact.Completed = true
	fact.CompletedAt = &now
}

// computeProgress recomputes floor(100 * completed / total) over the course's
// full published lesson set, not just touched lessons.
func computeProgress(tx *gorm.DB, enrollmentID, courseID uint) (int, error) {
	lessonIDs := tx.Model(&courseModels.Lesson{}).Select("id").
		Where("course_id = ? AND is_deleted = false AND is_published = true", courseID)

	var total int64
	if err := tx.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = false AND is_published = true", courseID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	var completed int64
	if err := tx.Model(&courseModels.LessonProgress{}).
		Where("enrollment_id = ? AND completed = true AND lesson_id IN (?)", enrollmentID, lessonIDs).
		Count(&completed).Error; err != nil {
		return 0, err
	}

	return int(completed * 100 / total), nil
}

// materializeLessonProgress creates a progress fact for every published
// lesson in the course. Runs at activation (free enroll or settlement);
// re-running is harmless because existing rows are skipped.
func materializeLessonProgress(tx *gorm.DB, enrollmentID, courseID uint) error {
	var lessons []courseModels.Lesson
	if err := tx.Where("course_id = ? AND is_deleted = false AND is_published = true", courseID).Find(&lessons).Error; err != nil {
		return err
	}

	for _, lesson := range lessons {
		fact := courseModels.LessonProgress{EnrollmentID: enrollmentID, LessonID: lesson.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fact).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetCourseProgress returns the enrollment plus the per-lesson breakdown for
// a learner's course.
func GetCourseProgress(db *gorm.DB, userID, courseID uint) (*courseModels.Enrollment, []LessonProgressView, error) {
	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnknownEnrollment
		}
		return nil, nil, err
	}

	var lessons []courseModels.Lesson
	if err := db.Where("course_id = ? AND is_deleted = false AND is_published = true", courseID).
		Order("order_index asc").Find(&lessons).Error; err != nil {
		return nil, nil, err
	}

	var facts []courseModels.LessonProgress
	if err := db.Where("enrollment_id = ?", enrollment.ID).Find(&facts).Error; err != nil {
		return nil, nil, err
	}
	factsByLesson := make(map[uint]*courseModels.LessonProgress, len(facts))
	for i := range facts {
		factsByLesson[facts[i].LessonID] = &facts[i]
	}

	views := make([]LessonProgressView, len(lessons))
	for i, lesson := range lessons {
		views[i] = LessonProgressView{Lesson: lesson, Progress: factsByLesson[lesson.ID]}
	}
	return &enrollment, views, nil
}
