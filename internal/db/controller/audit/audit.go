// Package audit records changes to roles and assignments.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 100

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Event describes one change. Nil ids mean "the system" for Actor and
// "no principal" for Subject.
type Event struct {
	Actor   uuid.UUID
	Subject uuid.UUID
	RoleID  uint
	Action  models.AuditAction
	Details map[string]any
}

func optional(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}

	return &id
}

// Record writes the event. Pass the transaction of the change so both
// commit together.
func Record(ctx context.Context, tx *gorm.DB, e Event) error {
	if tx == nil {
		return ErrDBNil
	}

	row := models.RoleAuditEvent{
		ActorID:   optional(e.Actor),
		SubjectID: optional(e.Subject),
		RoleID:    e.RoleID,
		Action:    e.Action,
		Details:   datatypes.JSONMap(e.Details),
	}

	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record audit event %s: %w", e.Action, err)
	}

	return nil
}

// Filter narrows List.
type Filter struct {
	Subject uuid.UUID
	RoleID  uint
	Limit   int
}

// List returns the newest events first.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.RoleAuditEvent, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	q := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(f.Limit)

	if f.Subject != uuid.Nil {
		q = q.Where("subject_id = ?", f.Subject)
	}

	if f.RoleID != 0 {
		q = q.Where("role_id = ?", f.RoleID)
	}

	var events []models.RoleAuditEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	return events, nil
}
