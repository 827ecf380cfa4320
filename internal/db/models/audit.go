package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditAction names a change to roles or assignments.
type AuditAction string

const (
	AuditRoleCreated        AuditAction = "role.created"
	AuditRoleUpdated        AuditAction = "role.updated"
	AuditRoleDeleted        AuditAction = "role.deleted"
	AuditRolePermissionsSet AuditAction = "role.permissions_set"
	AuditAssignmentGranted  AuditAction = "assignment.granted"
	AuditAssignmentRevoked  AuditAction = "assignment.revoked"
	AuditAssignmentExpired  AuditAction = "assignment.expired"
)

// RoleAuditEvent records who changed a role or an assignment.
type RoleAuditEvent struct {
	ID uint `gorm:"primaryKey"`
	// ActorID is nil for changes made by the system (seed, expiry sweep).
	ActorID *uuid.UUID `gorm:"type:varchar(36);index"`
	// SubjectID is the principal whose access changed, if any.
	SubjectID *uuid.UUID  `gorm:"type:varchar(36);index"`
	RoleID    uint        `gorm:"index"`
	Action    AuditAction `gorm:"type:varchar(40);not null"`
	Details   datatypes.JSONMap
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the RoleAuditEvent model.
func (RoleAuditEvent) TableName() string {
	return "role_audit_events"
}
