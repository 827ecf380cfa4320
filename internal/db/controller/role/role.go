// Package role manages roles and the permissions they grant.
// Every change that can alter a resolved permission set invalidates the
// resolver cache and is written to the audit log in the same transaction.
package role

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/audit"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

const whereRoleID = "role_id = ?"

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleExists is returned when a role name is already taken.
	ErrRoleExists = errors.New("role with this name already exists")
	// ErrSystemRole is returned when deleting or renaming a system role.
	ErrSystemRole = errors.New("system roles cannot be deleted or renamed")
	// ErrUnknownPermission is returned when a permission to grant does not exist.
	ErrUnknownPermission = errors.New("unknown permission")
)

// Input carries the editable fields of a role.
type Input struct {
	Name           string `json:"name"           validate:"required,min=2,max=100"`
	Description    string `json:"description"    validate:"max=255"`
	HierarchyLevel int    `json:"hierarchyLevel" validate:"gte=0,lte=100"`
	IsActive       bool   `json:"isActive"`
}

// Detail is a role with the permissions it grants.
type Detail struct {
	models.Role
	Permissions []models.Permission `json:"permissions"`
}

// Manager changes roles.
type Manager struct {
	db          *gorm.DB
	invalidator auth.Invalidator
}

// New creates a new role manager.
func New(db *gorm.DB, invalidator auth.Invalidator) *Manager {
	return &Manager{db: db, invalidator: invalidator}
}

// List returns every role, highest rank first.
func (m *Manager) List(ctx context.Context) ([]models.Role, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	if err := m.db.WithContext(ctx).Order("hierarchy_level DESC, name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// Get returns a role with its permissions.
func (m *Manager) Get(ctx context.Context, id uint) (*Detail, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	role, err := find(ctx, m.db, id)
	if err != nil {
		return nil, err
	}

	var permissions []models.Permission

	err = m.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", id).
		Order("permissions.resource, permissions.action").
		Find(&permissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}

	return &Detail{Role: *role, Permissions: permissions}, nil
}

// Create creates a custom role.
func (m *Manager) Create(ctx context.Context, actor uuid.UUID, in Input) (*models.Role, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	role := models.Role{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		HierarchyLevel: in.HierarchyLevel,
		IsActive:       in.IsActive,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(tx, role.Name, 0); err != nil {
			return err
		}

		if err := tx.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:   actor,
			RoleID:  role.ID,
			Action:  models.AuditRoleCreated,
			Details: map[string]any{"name": role.Name, "hierarchyLevel": role.HierarchyLevel},
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("principal_id", actor.String()).Str("role", role.Name).Msg("role created")

	return &role, nil
}

// Update changes a role. System roles keep their name.
func (m *Manager) Update(ctx context.Context, actor uuid.UUID, id uint, in Input) (*models.Role, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	var role *models.Role

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if role, err = find(ctx, tx, id); err != nil {
			return err
		}

		name := strings.TrimSpace(in.Name)
		if role.IsSystemRole && name != role.Name {
			return ErrSystemRole
		}

		if err = nameTaken(tx, name, id); err != nil {
			return err
		}

		before := map[string]any{
			"name":           role.Name,
			"hierarchyLevel": role.HierarchyLevel,
			"isActive":       role.IsActive,
		}

		role.Name = name
		role.Description = in.Description
		role.HierarchyLevel = in.HierarchyLevel
		role.IsActive = in.IsActive

		if err = tx.Save(role).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:  actor,
			RoleID: role.ID,
			Action: models.AuditRoleUpdated,
			Details: map[string]any{
				"before": before,
				"after": map[string]any{
					"name":           role.Name,
					"hierarchyLevel": role.HierarchyLevel,
					"isActive":       role.IsActive,
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	m.invalidator.InvalidateAll()

	return role, nil
}

// Delete deletes a custom role together with its grants and assignments.
func (m *Manager) Delete(ctx context.Context, actor uuid.UUID, id uint) error {
	if m.db == nil {
		return ErrDBNil
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := find(ctx, tx, id)
		if err != nil {
			return err
		}

		if role.IsSystemRole {
			return ErrSystemRole
		}

		var holders int64
		if err = tx.Model(&models.UserRole{}).Where(whereRoleID, id).Count(&holders).Error; err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}

		// sqlite does not enforce the cascade without the foreign_keys pragma
		if err = tx.Where(whereRoleID, id).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}

		if err = tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to delete role permissions: %w", err)
		}

		if err = tx.Delete(&models.Role{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:   actor,
			RoleID:  id,
			Action:  models.AuditRoleDeleted,
			Details: map[string]any{"name": role.Name, "assignments": holders},
		})
	})
	if err != nil {
		return err
	}

	m.invalidator.InvalidateAll()

	log.Info().Str("principal_id", actor.String()).Uint("role_id", id).Msg("role deleted")

	return nil
}

// SetPermissions replaces the permissions a role grants. Permissions are
// named either by their name ("edit_menu") or key ("menu.write").
func (m *Manager) SetPermissions(ctx context.Context, actor uuid.UUID, id uint, names []string) error {
	if m.db == nil {
		return ErrDBNil
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := find(ctx, tx, id); err != nil {
			return err
		}

		permissions, err := lookupPermissions(tx, names)
		if err != nil {
			return err
		}

		if err = tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		keys := make([]string, 0, len(permissions))
		grants := make([]models.RolePermission, 0, len(permissions))

		for _, p := range permissions {
			grants = append(grants, models.RolePermission{RoleID: id, PermissionID: p.ID})
			keys = append(keys, auth.Key(p.Resource, p.Action).String())
		}

		if len(grants) > 0 {
			if err = tx.Omit("Role", "Permission").Create(&grants).Error; err != nil {
				return fmt.Errorf("failed to grant permissions: %w", err)
			}
		}

		return audit.Record(ctx, tx, audit.Event{
			Actor:   actor,
			RoleID:  id,
			Action:  models.AuditRolePermissionsSet,
			Details: map[string]any{"permissions": keys},
		})
	})
	if err != nil {
		return err
	}

	m.invalidator.InvalidateAll()

	return nil
}

func find(ctx context.Context, db *gorm.DB, id uint) (*models.Role, error) {
	var role models.Role

	err := db.WithContext(ctx).First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	return &role, nil
}

func nameTaken(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Role{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}

	if count > 0 {
		return ErrRoleExists
	}

	return nil
}

// lookupPermissions resolves names or keys to permission rows, deduplicated.
func lookupPermissions(tx *gorm.DB, names []string) ([]models.Permission, error) {
	var all []models.Permission
	if err := tx.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	byName := make(map[string]models.Permission, 2*len(all))
	for _, p := range all {
		byName[p.Name] = p
		byName[auth.Key(p.Resource, p.Action).String()] = p
	}

	seen := make(map[uint]struct{}, len(names))
	out := make([]models.Permission, 0, len(names))

	for _, name := range names {
		p, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
		}

		if _, dup := seen[p.ID]; dup {
			continue
		}

		seen[p.ID] = struct{}{}
		out = append(out, p)
	}

	return out, nil
}
