package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// Store is the read side of the permission data.
// Implementations return errors wrapping ErrStoreUnavailable for any failure
// to reach the data, so the resolver can fail closed regardless of transport.
type Store interface {
	// FetchRoleAssignments returns the principal's assignments with is_active = true
	// and their roles loaded, nothing for a deactivated principal. Expired
	// assignments are included; expiry is evaluated by the caller.
	FetchRoleAssignments(ctx context.Context, principalID uuid.UUID) ([]models.UserRole, error)
	// FetchRolePermissions returns the permissions granted by a role.
	FetchRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error)
	// FetchRole returns a role, ErrRoleNotFound if it does not exist.
	FetchRole(ctx context.Context, roleID uint) (*models.Role, error)
	// FetchPermissions returns every permission.
	FetchPermissions(ctx context.Context) ([]models.Permission, error)
}

// GormStore implements Store on a gorm database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm backed permission store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

var errNoDatabase = errors.New("database is nil")

// FetchRoleAssignments implements Store.
func (s *GormStore) FetchRoleAssignments(ctx context.Context, principalID uuid.UUID) ([]models.UserRole, error) {
	if s.db == nil {
		return nil, unavailable(errNoDatabase)
	}

	var assignments []models.UserRole

	err := s.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ? AND is_active = ?", principalID, true).
		Where("EXISTS (SELECT 1 FROM users WHERE users.id = user_roles.user_id AND users.active = ?)", true).
		Order("assigned_at ASC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to fetch role assignments: %w", err))
	}

	return assignments, nil
}

// FetchRolePermissions implements Store.
func (s *GormStore) FetchRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	if s.db == nil {
		return nil, unavailable(errNoDatabase)
	}

	var permissions []models.Permission

	err := s.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to fetch role permissions: %w", err))
	}

	return permissions, nil
}

// FetchRole implements Store.
func (s *GormStore) FetchRole(ctx context.Context, roleID uint) (*models.Role, error) {
	if s.db == nil {
		return nil, unavailable(errNoDatabase)
	}

	var role models.Role

	err := s.db.WithContext(ctx).First(&role, roleID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrRoleNotFound
	case err != nil:
		return nil, unavailable(fmt.Errorf("failed to fetch role: %w", err))
	}

	return &role, nil
}

// FetchPermissions implements Store.
func (s *GormStore) FetchPermissions(ctx context.Context) ([]models.Permission, error) {
	if s.db == nil {
		return nil, unavailable(errNoDatabase)
	}

	var permissions []models.Permission

	if err := s.db.WithContext(ctx).Order("resource ASC, action ASC").Find(&permissions).Error; err != nil {
		return nil, unavailable(fmt.Errorf("failed to fetch permissions: %w", err))
	}

	return permissions, nil
}
