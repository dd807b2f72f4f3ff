package models

import "gorm.io/gorm"

// Role enum values
const (
	RoleUser       = "USER"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

// User model
type User struct {
	gorm.Model
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	Mobile     string `json:"mobile"`
	Password   string `json:"-" gorm:"not null"`
	Role       string `json:"role" gorm:"default:'USER'"` // USER, INSTRUCTOR, ADMIN
	IsVerified bool   `json:"is_verified" gorm:"default:false"`
	IsDeleted  bool   `gorm:"default:false"`
}
