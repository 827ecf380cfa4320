package models

import "time"

// Role is a named permission bundle with a hierarchy rank.
// Privilege checks compare HierarchyLevel, never Name.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the unique name of the role (e.g. "super_admin", "restaurant").
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// HierarchyLevel orders roles; higher is more privileged.
	HierarchyLevel int `gorm:"not null;index"`
	// IsSystemRole marks seeded roles that cannot be deleted or renamed.
	IsSystemRole bool `gorm:"not null"`
	// IsActive false makes the role grant nothing even while assigned.
	IsActive bool `gorm:"not null"`
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
