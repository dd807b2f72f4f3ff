package course

import "gorm.io/gorm"

// Lesson content types
const (
	LessonTypeVideo      = "VIDEO"
	LessonTypeText       = "TEXT"
	LessonTypeQuiz       = "QUIZ"
	LessonTypeAssignment = "ASSIGNMENT"
)

// Lesson represents a single lesson within a course
type Lesson struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	ContentType string `json:"content_type" gorm:"default:'VIDEO'"` // VIDEO, TEXT, QUIZ, ASSIGNMENT
	VideoURL    string `json:"video_url"`
	TextContent string `json:"text_content" gorm:"type:text"`
	Duration    int    `json:"duration" gorm:"default:0"` // seconds
	OrderIndex  int    `json:"order_index" gorm:"default:0"`

	// PassingScore applies to QUIZ lessons only; reaching it marks the
	// lesson completed automatically.
	PassingScore *int `json:"passing_score"`

	IsPublished bool `json:"is_published" gorm:"default:false"`
	IsDeleted   bool `gorm:"default:false"`
}
