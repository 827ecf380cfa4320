package models

import "time"

// Permission is an atomic capability identified by its (Resource, Action) pair.
// Permissions are reference data created by the seed, not by end users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the unique human name (e.g. "manage_roles").
	Name string `gorm:"unique;size:100;not null"`
	// Resource is the resource this permission applies to (e.g. "roles", "menu").
	Resource string `gorm:"size:100;not null;uniqueIndex:idx_permission_resource_action"`
	// Action is the action allowed on the resource (e.g. "manage", "write").
	Action string `gorm:"size:50;not null;uniqueIndex:idx_permission_resource_action"`
	// Description explains what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
