package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash  string    `json:"-" gorm:"not null"`
	FirstName     string    `json:"first_name" gorm:"not null"`
	LastName      string    `json:"last_name" gorm:"not null"`
	Phone         string    `json:"phone"`
	Role          UserRole  `json:"role" gorm:"not null;default:'user'"`
	LoyaltyPoints int64     `json:"loyalty_points" gorm:"not null;default:0"`
	TotalOrders   int       `json:"total_orders" gorm:"not null;default:0"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName is used in admin listings and notifications
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
