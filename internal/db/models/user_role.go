package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole assigns a role to a principal.
// An assignment grants its role only while IsActive is true and ExpiresAt is
// nil or strictly after the evaluation instant.
type UserRole struct {
	// ID is the unique identifier for the assignment.
	ID uint `gorm:"primaryKey"`
	// UserID is the principal holding the role.
	UserID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	// RoleID is the assigned role.
	RoleID uint `gorm:"not null;index"`
	// Role is loaded with the assignment.
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// IsActive false revokes the assignment.
	IsActive bool `gorm:"not null;index"`
	// AssignedAt breaks ties between roles of equal rank (earliest wins).
	AssignedAt time.Time `gorm:"not null"`
	// ExpiresAt is optional; at or after this instant the assignment grants nothing.
	ExpiresAt *time.Time
	// AssignedBy is the principal that granted the role, nil for seeded grants.
	AssignedBy *uuid.UUID `gorm:"type:varchar(36)"`
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}

// ActiveAt reports whether the assignment grants its role at the given instant.
func (ur UserRole) ActiveAt(now time.Time) bool {
	if !ur.IsActive {
		return false
	}

	return ur.ExpiresAt == nil || ur.ExpiresAt.After(now)
}
