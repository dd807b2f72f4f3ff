package course

import (
	"time"

	"gorm.io/gorm"
)

// Course represents a learning course
type Course struct {
	gorm.Model
	Title        string `json:"title"`
	Description  string `json:"description"`
	InstructorID uint   `json:"instructor_id" gorm:"index"`
	ThumbnailURL string `json:"thumbnail_url"`

	// Pricing. A zero resolved price means free enrollment.
	Price              float64    `json:"price" gorm:"default:0"`
	DiscountPrice      float64    `json:"discount_price" gorm:"default:0"`
	DiscountValidUntil *time.Time `json:"discount_valid_until"`
	Currency           string     `json:"currency" gorm:"type:varchar(10);default:'INR'"`

	// Access window granted on activation, in days. 0 means lifetime access.
	AccessPeriodDays int `json:"access_period_days" gorm:"default:0"`

	// Capacity. 0 means unlimited. EnrolledCount only moves through the
	// conditional atomic update in the services package.
	MaxStudents   int `json:"max_students" gorm:"default:0"`
	EnrolledCount int `json:"enrolled_count" gorm:"default:0"`

	IsPublished bool `json:"is_published" gorm:"default:false"`
	IsDeleted   bool `gorm:"default:false"`
}

// CurrentPrice returns the price in effect at the given time, honouring the
// discount window.
func (c *Course) CurrentPrice(now time.Time) float64 {
	if c.DiscountPrice > 0 && c.DiscountValidUntil != nil && !now.After(*c.DiscountValidUntil) {
		return c.DiscountPrice
	}
	return c.Price
}
