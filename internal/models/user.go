package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleLecturer    UserRole = "Lecturer"
	RoleCoordinator UserRole = "Coordinator"
	RoleManager     UserRole = "Manager"
	RoleHR          UserRole = "HR"
)

// Roles lists every role in display order.
var Roles = []UserRole{RoleLecturer, RoleCoordinator, RoleManager, RoleHR}

// Valid reports whether r is one of the fixed roles.
func (r UserRole) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FirstName    string          `gorm:"size:50;not null" json:"first_name"`
	LastName     string          `gorm:"size:50;not null" json:"last_name"`
	Email        string          `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"size:255;not null" json:"-"`
	Role         UserRole        `gorm:"size:20;not null;index" json:"role"`
	HourlyRate   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"hourly_rate"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DisplayName is the name recorded on audit entries.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeRate zeroes the hourly rate for every role except Lecturer.
func (u *User) NormalizeRate() {
	if u.Role != RoleLecturer {
		u.HourlyRate = decimal.Zero
	}
}
