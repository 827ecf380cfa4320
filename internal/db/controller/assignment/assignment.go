// Package assignment grants and revokes roles.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/audit"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrAssignmentNotFound is returned when an assignment is not found.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrPrincipalNotFound is returned when granting to an unknown principal.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrRoleNotFound is returned when granting an unknown role.
	ErrRoleNotFound = errors.New("role not found")
	// ErrExpiryInPast is returned when a grant would expire before it starts.
	ErrExpiryInPast = errors.New("expiry must be in the future")
)

// Grant describes a new assignment.
type Grant struct {
	PrincipalID uuid.UUID  `json:"principalId" validate:"required"`
	RoleID      uint       `json:"roleId"      validate:"required,gt=0"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// Manager changes role assignments. Every change invalidates the cached
// permission set of the principal concerned.
type Manager struct {
	db          *gorm.DB
	invalidator auth.Invalidator
	now         func() time.Time
}

// New creates a new assignment manager.
func New(db *gorm.DB, invalidator auth.Invalidator) *Manager {
	return &Manager{db: db, invalidator: invalidator, now: time.Now}
}

// WithClock replaces the manager's time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Grant assigns a role to a principal. Granting a role the principal
// already holds reactivates the assignment and replaces its expiry.
func (m *Manager) Grant(ctx context.Context, actor uuid.UUID, g Grant) (*models.UserRole, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	now := m.now().UTC()
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return nil, ErrExpiryInPast
	}

	var assignment models.UserRole

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.User{}, "id = ?", g.PrincipalID, ErrPrincipalNotFound); err != nil {
			return err
		}

		if err := exists(tx, &models.Role{}, "id = ?", g.RoleID, ErrRoleNotFound); err != nil {
			return err
		}

		err := tx.Where("user_id = ? AND role_id = ?", g.PrincipalID, g.RoleID).First(&assignment).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			assignment = models.UserRole{
				UserID:     g.PrincipalID,
				RoleID:     g.RoleID,
				IsActive:   true,
				AssignedAt: now,
				ExpiresAt:  g.ExpiresAt,
				AssignedBy: optional(actor),
			}

			if err = tx.Omit("Role").Create(&assignment).Error; err != nil {
				return fmt.Errorf("failed to create assignment: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load assignment: %w", err)
		default:
			// a live assignment keeps its grant time, the tie-break of equal ranks
			if !assignment.IsActive || (assignment.ExpiresAt != nil && !assignment.ExpiresAt.After(now)) {
				assignment.AssignedAt = now
			}

			assignment.IsActive = true
			assignment.ExpiresAt = g.ExpiresAt
			assignment.AssignedBy = optional(actor)

			if err = tx.Omit("Role").Save(&assignment).Error; err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
		}

		details := map[string]any{}
		if g.ExpiresAt != nil {
			details["expiresAt"] = g.ExpiresAt.UTC().Format(time.RFC3339)
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:   actor,
			Subject: g.PrincipalID,
			RoleID:  g.RoleID,
			Action:  models.AuditAssignmentGranted,
			Details: details,
		})
	})
	if err != nil {
		return nil, err
	}

	m.invalidator.Invalidate(g.PrincipalID)

	log.Info().Str("principal_id", g.PrincipalID.String()).Uint("role_id", g.RoleID).
		Str("actor", actor.String()).Msg("role granted")

	return &assignment, nil
}

// Revoke deactivates an assignment. The principal loses the role's
// permissions on its next resolution.
func (m *Manager) Revoke(ctx context.Context, actor uuid.UUID, id uint) error {
	if m.db == nil {
		return ErrDBNil
	}

	var assignment models.UserRole

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&assignment, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		if err = tx.Model(&assignment).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to revoke assignment: %w", err)
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:   actor,
			Subject: assignment.UserID,
			RoleID:  assignment.RoleID,
			Action:  models.AuditAssignmentRevoked,
		})
	})
	if err != nil {
		return err
	}

	m.invalidator.Invalidate(assignment.UserID)

	log.Info().Str("principal_id", assignment.UserID.String()).Uint("role_id", assignment.RoleID).
		Str("actor", actor.String()).Msg("role revoked")

	return nil
}

// List returns the principal's assignments, active or not, oldest first.
func (m *Manager) List(ctx context.Context, principalID uuid.UUID) ([]models.UserRole, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	var assignments []models.UserRole

	err := m.db.WithContext(ctx).Preload("Role").
		Where("user_id = ?", principalID).
		Order("assigned_at, id").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	return assignments, nil
}

// ExpireDue deactivates every active assignment whose expiry is at or
// before now and returns how many it deactivated. Resolution already
// ignores expired assignments; this keeps the table and the audit log
// in line with what principals can actually do.
func (m *Manager) ExpireDue(ctx context.Context) (int, error) {
	if m.db == nil {
		return 0, ErrDBNil
	}

	now := m.now().UTC()

	var due, expired []models.UserRole

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
			Find(&due).Error
		if err != nil {
			return fmt.Errorf("failed to find expired assignments: %w", err)
		}

		for _, a := range due {
			ok, errExpire := m.expire(ctx, tx, a, now)
			if errExpire != nil {
				return errExpire
			}

			if ok {
				expired = append(expired, a)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, a := range expired {
		m.invalidator.Invalidate(a.UserID)
	}

	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("expired role assignments deactivated")
	}

	return len(expired), nil
}

// expire deactivates a, unless it was re-granted with a later expiry since
// it was read. It reports whether the row was deactivated.
func (m *Manager) expire(ctx context.Context, tx *gorm.DB, a models.UserRole, now time.Time) (bool, error) {
	res := tx.Model(&models.UserRole{}).
		Where("id = ? AND is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", a.ID, true, now).
		Update("is_active", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire assignment %d: %w", a.ID, res.Error)
	}

	if res.RowsAffected == 0 {
		return false, nil
	}

	err := audit.Record(ctx, tx, audit.Event{
		Subject: a.UserID,
		RoleID:  a.RoleID,
		Action:  models.AuditAssignmentExpired,
		Details: map[string]any{"expiresAt": a.ExpiresAt.UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

func exists(tx *gorm.DB, model any, query string, arg any, notFound error) error {
	var count int64
	if err := tx.Model(model).Where(query, arg).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up %T: %w", model, err)
	}

	if count == 0 {
		return notFound
	}

	return nil
}

func optional(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}

	return &id
}
