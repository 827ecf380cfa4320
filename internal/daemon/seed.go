package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/setting"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

const (
	// SettingKeySeed is the setting holding the seed state.
	SettingKeySeed = "rbac_seed"

	// seedVersion is bumped whenever systemRoles grants change.
	seedVersion = 1

	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleRestaurant = "restaurant"
)

// SeedState records what the seed has applied.
type SeedState struct {
	Version   int       `json:"version"`
	AppliedAt time.Time `json:"appliedAt"`
	// Bootstrap is the email of the super admin created on the first run.
	Bootstrap string `json:"bootstrap,omitempty"`
}

// Load loads the seed state, zero when the database was never seeded.
func (s *SeedState) Load(ctx context.Context, db *gorm.DB) error {
	err := setting.LoadJSON(ctx, db, SettingKeySeed, s)
	if errors.Is(err, setting.ErrSettingNotFound) {
		*s = SeedState{}
		return nil
	}

	return err
}

// Save saves the seed state.
func (s *SeedState) Save(ctx context.Context, db *gorm.DB) error {
	return setting.SaveJSON(ctx, db, SettingKeySeed, s)
}

type systemRole struct {
	name        string
	description string
	level       int
	grants      []auth.PermissionKey
}

func systemRoles() []systemRole {
	all := make([]auth.PermissionKey, 0, len(auth.Catalogue()))
	for _, e := range auth.Catalogue() {
		all = append(all, e.Key)
	}

	return []systemRole{
		{RoleSuperAdmin, "Full platform access", auth.LevelSuperAdmin, all},
		{RoleAdmin, "Platform operations", auth.LevelAdmin, []auth.PermissionKey{
			auth.PermUsersManage, auth.PermUsersRead, auth.PermRestaurantsManage,
			auth.PermSubscriptionsManage, auth.PermAdminDashboardView,
			auth.PermMenuRead, auth.PermOrdersRead,
		}},
		{RoleRestaurant, "Restaurant owner", auth.LevelRestaurant, []auth.PermissionKey{
			auth.PermDashboardView, auth.PermMenuRead, auth.PermMenuWrite,
			auth.PermTablesWrite, auth.PermOrdersRead, auth.PermOrdersWrite,
		}},
	}
}

// seed creates the permission catalogue and the system roles, and on an
// empty database a bootstrap super admin. Grants are written only when the
// stored seed version is older, so grants edited by an admin survive restarts.
func seed(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	var state SeedState
	if err := state.Load(ctx, db); err != nil {
		return fmt.Errorf("failed to load seed state: %w", err)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permissions, err := seedPermissions(tx)
		if err != nil {
			return err
		}

		for _, sr := range systemRoles() {
			role, errRole := seedRole(tx, sr)
			if errRole != nil {
				return errRole
			}

			if state.Version >= seedVersion {
				continue
			}

			grants := make([]models.RolePermission, 0, len(sr.grants))
			for _, key := range sr.grants {
				grants = append(grants, models.RolePermission{RoleID: role.ID, PermissionID: permissions[key]})
			}

			if err = tx.Omit("Role", "Permission").Clauses(clause.OnConflict{DoNothing: true}).
				Create(&grants).Error; err != nil {
				return fmt.Errorf("failed to grant %s permissions: %w", sr.name, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if state.Version < seedVersion {
		log.Info().Int("from", state.Version).Int("to", seedVersion).Msg("role grants seeded")
		state.Version = seedVersion
	}

	email, err := bootstrap(ctx, cfg, db)
	if err != nil {
		return err
	}

	if email != "" {
		state.Bootstrap = email
	}

	state.AppliedAt = time.Now().UTC()

	return state.Save(ctx, db)
}

func seedPermissions(tx *gorm.DB) (map[auth.PermissionKey]uint, error) {
	ids := make(map[auth.PermissionKey]uint)

	for _, e := range auth.Catalogue() {
		p := models.Permission{Name: e.Name}

		err := tx.Where(models.Permission{Name: e.Name}).
			Attrs(models.Permission{Resource: e.Key.Resource, Action: e.Key.Action, Description: e.Description}).
			FirstOrCreate(&p).Error
		if err != nil {
			return nil, fmt.Errorf("failed to seed permission %s: %w", e.Name, err)
		}

		ids[e.Key] = p.ID
	}

	return ids, nil
}

func seedRole(tx *gorm.DB, sr systemRole) (*models.Role, error) {
	role := models.Role{Name: sr.name}

	err := tx.Where(models.Role{Name: sr.name}).
		Attrs(models.Role{Description: sr.description, HierarchyLevel: sr.level, IsActive: true}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, fmt.Errorf("failed to seed role %s: %w", sr.name, err)
	}

	if !role.IsSystemRole {
		if err = tx.Model(&role).Update("is_system_role", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark %s as system role: %w", sr.name, err)
		}
	}

	return &role, nil
}

// bootstrap creates the configured super admin when no principal holds a
// super admin level role. It returns the email of the created principal.
func bootstrap(ctx context.Context, cfg *config.Config, db *gorm.DB) (string, error) {
	local := cfg.Auth.LocalDB

	email := strings.ToLower(strings.TrimSpace(local.BootstrapEmail))
	if !local.Enabled || email == "" || local.BootstrapPassword == "" {
		return "", nil
	}

	var holders int64

	err := db.WithContext(ctx).Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.hierarchy_level >= ? AND user_roles.is_active = ?", auth.LevelSuperAdmin, true).
		Count(&holders).Error
	if err != nil {
		return "", fmt.Errorf("failed to count super admins: %w", err)
	}

	if holders > 0 {
		return "", nil
	}

	hash, err := models.HashPassword(local.BootstrapPassword)
	if err != nil {
		return "", err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err = tx.Where("name = ?", RoleSuperAdmin).First(&role).Error; err != nil {
			return fmt.Errorf("failed to load %s role: %w", RoleSuperAdmin, err)
		}

		user := models.User{
			Email:       email,
			Password:    hash,
			DisplayName: "Administrator",
			Active:      true,
			AuthSource:  models.AuthSourceLocal,
		}

		if err = tx.Where(models.User{Email: email}).Attrs(user).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to create bootstrap principal: %w", err)
		}

		return tx.Omit("Role").Create(&models.UserRole{
			UserID:     user.ID,
			RoleID:     role.ID,
			IsActive:   true,
			AssignedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return "", err
	}

	log.Warn().Str("email", email).Msg("bootstrap super admin created, change its password")

	return email, nil
}
