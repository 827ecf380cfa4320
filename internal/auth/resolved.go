package auth

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// ResolvedPermissions is the capability set of one principal at one instant.
// It is never mutated after construction; the cache replaces it whole.
type ResolvedPermissions struct {
	PrincipalID uuid.UUID
	// Role is the effective role, nil when the principal holds none.
	Role *models.Role
	// Roles lists every granting role, highest rank first.
	Roles []models.Role
	// ResolvedAt is the instant expiry was evaluated at.
	ResolvedAt time.Time
	// ValidUntil is the earliest expiry among contributing assignments.
	ValidUntil *time.Time

	permissions map[PermissionKey]models.Permission
}

// Has reports whether the set contains the permission.
func (rp *ResolvedPermissions) Has(key PermissionKey) bool {
	if rp == nil {
		return false
	}

	_, ok := rp.permissions[Key(key.Resource, key.Action)]

	return ok
}

// Len returns the number of distinct permissions.
func (rp *ResolvedPermissions) Len() int {
	if rp == nil {
		return 0
	}

	return len(rp.permissions)
}

// Keys returns the permission keys sorted by their string form.
func (rp *ResolvedPermissions) Keys() []PermissionKey {
	if rp == nil {
		return nil
	}

	keys := make([]PermissionKey, 0, len(rp.permissions))
	for k := range rp.permissions {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	return keys
}

// Names returns the permissions in "resource.action" form, sorted.
func (rp *ResolvedPermissions) Names() []string {
	keys := rp.Keys()

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}

	return names
}

// Level returns the effective hierarchy level.
func (rp *ResolvedPermissions) Level() int {
	if rp == nil {
		return LevelNone
	}

	return LevelOf(rp.Role)
}

// RoleName returns the effective role name, empty when there is none.
func (rp *ResolvedPermissions) RoleName() string {
	if rp == nil || rp.Role == nil {
		return ""
	}

	return rp.Role.Name
}

// IsAdmin reports whether the effective role reaches LevelAdmin.
func (rp *ResolvedPermissions) IsAdmin() bool {
	return IsAdminLevel(rp.Level())
}

// IsSuperAdmin reports whether the effective role is at LevelSuperAdmin.
func (rp *ResolvedPermissions) IsSuperAdmin() bool {
	return IsSuperAdminLevel(rp.Level())
}

// validAt reports whether no contributing assignment has expired by now and,
// when maxAge is positive, the set was resolved less than maxAge ago.
func (rp *ResolvedPermissions) validAt(now time.Time, maxAge time.Duration) bool {
	if maxAge > 0 && !now.Before(rp.ResolvedAt.Add(maxAge)) {
		return false
	}

	return rp.ValidUntil == nil || now.Before(*rp.ValidUntil)
}

// newResolvedPermissions builds the set from granting assignments and the
// permissions of each of their roles.
func newResolvedPermissions(
	principalID uuid.UUID,
	granting []models.UserRole,
	rolePermissions map[uint][]models.Permission,
	now time.Time,
) *ResolvedPermissions {
	rp := &ResolvedPermissions{
		PrincipalID: principalID,
		ResolvedAt:  now,
		permissions: make(map[PermissionKey]models.Permission),
	}

	seen := make(map[uint]bool, len(granting))

	for _, a := range granting {
		if a.ExpiresAt != nil && (rp.ValidUntil == nil || a.ExpiresAt.Before(*rp.ValidUntil)) {
			until := *a.ExpiresAt
			rp.ValidUntil = &until
		}

		if seen[a.RoleID] {
			continue
		}

		seen[a.RoleID] = true

		rp.Roles = append(rp.Roles, a.Role)

		for _, p := range rolePermissions[a.RoleID] {
			key := Key(p.Resource, p.Action)
			if _, ok := rp.permissions[key]; !ok {
				rp.permissions[key] = p
			}
		}
	}

	if len(rp.Roles) > 0 {
		role := rp.Roles[0]
		rp.Role = &role
	}

	return rp
}

// Fixed returns a set holding exactly keys under role, resolved at now.
// It never expires. Use it where permissions do not come from the store.
func Fixed(principalID uuid.UUID, role *models.Role, now time.Time, keys ...PermissionKey) *ResolvedPermissions {
	rp := &ResolvedPermissions{
		PrincipalID: principalID,
		Role:        role,
		ResolvedAt:  now,
		permissions: make(map[PermissionKey]models.Permission, len(keys)),
	}

	if role != nil {
		rp.Roles = []models.Role{*role}
	}

	for _, k := range keys {
		k = Key(k.Resource, k.Action)
		rp.permissions[k] = models.Permission{Resource: k.Resource, Action: k.Action}
	}

	return rp
}
