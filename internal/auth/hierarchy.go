package auth

import (
	"sort"
	"time"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// Hierarchy levels of the seeded system roles.
// Custom roles may use any level; only these thresholds carry meaning.
const (
	LevelNone       = 0
	LevelRestaurant = 1
	LevelAdmin      = 50
	LevelSuperAdmin = 100
)

// Granting returns the assignments that grant their role at now, highest
// rank first. An assignment grants when it is active, not expired (an
// ExpiresAt equal to now is expired), its role was loaded and the role is
// active.
func Granting(assignments []models.UserRole, now time.Time) []models.UserRole {
	granting := make([]models.UserRole, 0, len(assignments))

	for _, a := range assignments {
		if !a.ActiveAt(now) {
			continue
		}

		if a.Role.ID == 0 || !a.Role.IsActive {
			continue
		}

		granting = append(granting, a)
	}

	sort.SliceStable(granting, func(i, j int) bool {
		return outranks(granting[i], granting[j])
	})

	return granting
}

// outranks orders by level, then earliest assignment, then assignment id.
func outranks(a, b models.UserRole) bool {
	if a.Role.HierarchyLevel != b.Role.HierarchyLevel {
		return a.Role.HierarchyLevel > b.Role.HierarchyLevel
	}

	if !a.AssignedAt.Equal(b.AssignedAt) {
		return a.AssignedAt.Before(b.AssignedAt)
	}

	return a.ID < b.ID
}

// EffectiveRole returns the highest ranked granting role, or nil when no
// assignment grants anything. A nil role means unprivileged, not an error.
func EffectiveRole(assignments []models.UserRole, now time.Time) *models.Role {
	granting := Granting(assignments, now)
	if len(granting) == 0 {
		return nil
	}

	role := granting[0].Role

	return &role
}

// LevelOf returns the hierarchy level of role, LevelNone for nil.
func LevelOf(role *models.Role) int {
	if role == nil {
		return LevelNone
	}

	return role.HierarchyLevel
}

// IsAdminLevel reports whether level reaches the admin threshold.
func IsAdminLevel(level int) bool {
	return level >= LevelAdmin
}

// IsSuperAdminLevel reports whether level is the super admin level.
func IsSuperAdminLevel(level int) bool {
	return level == LevelSuperAdmin
}
