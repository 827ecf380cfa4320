package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

func newTestService(t *testing.T, store Store, c *clock) *Service {
	t.Helper()

	svc, err := NewService(store, 16, WithClock(c.Now))
	require.NoError(t, err, "failed to create service")

	return svc
}

func TestResolveUnionsRoles(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuRead, permMenuWrite)
	store.addRole(roleAdmin, permAdminView, permMenuWrite)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true, AssignedAt: testNow.Add(-time.Hour)})
	store.assign(principal, models.UserRole{RoleID: roleAdmin.ID, IsActive: true, AssignedAt: testNow})

	svc := newTestService(t, store, &clock{now: testNow})

	rp, err := svc.Resolve(ctx, principal)
	require.NoError(t, err)

	assert.Equal(t, 3, rp.Len())
	assert.Equal(t, []string{"admin_dashboard.view", "menu.read", "menu.write"}, rp.Names())
	assert.Equal(t, "admin", rp.RoleName())
	assert.Len(t, rp.Roles, 2)
	assert.True(t, rp.IsAdmin())
	assert.False(t, rp.IsSuperAdmin())

	assert.True(t, svc.Can(ctx, principal, "MENU", " write "))
	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))
}

func TestCanWithoutRoles(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleAdmin, permRolesManage)

	svc := newTestService(t, store, &clock{now: testNow})
	principal := uuid.New()

	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))

	role, err := svc.EffectiveRole(ctx, principal)
	require.NoError(t, err)
	assert.Nil(t, role)

	admin, err := svc.IsAdmin(ctx, principal)
	require.NoError(t, err)
	assert.False(t, admin)

	perms, err := svc.Permissions(ctx, principal)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestResolveNilPrincipal(t *testing.T) {
	svc := newTestService(t, newFakeStore(), &clock{now: testNow})

	_, err := svc.Resolve(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrNoPrincipal)

	assert.False(t, svc.Can(context.Background(), uuid.Nil, "menu", "read"))
}

func TestExpiredAssignmentContributesNothing(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleSuperAdmin, permRolesManage)
	store.addRole(roleRestaurant, permMenuWrite)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleSuperAdmin.ID, IsActive: true, ExpiresAt: timePtr(testNow)})
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))
	assert.True(t, svc.Can(ctx, principal, "menu", "write"))

	superAdmin, err := svc.IsSuperAdmin(ctx, principal)
	require.NoError(t, err)
	assert.False(t, superAdmin)
}

func TestRevocationIsImmediate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleAdmin, permRolesManage)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleAdmin.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})
	require.True(t, svc.Can(ctx, principal, "roles", "manage"))

	store.setActive(principal, roleAdmin.ID, false)

	// still served from cache until invalidated
	assert.True(t, svc.Can(ctx, principal, "roles", "manage"))

	svc.Invalidate(principal)
	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuWrite)

	first, second := uuid.New(), uuid.New()
	store.assign(first, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})
	store.assign(second, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})
	require.True(t, svc.Can(ctx, first, "menu", "write"))
	require.True(t, svc.Can(ctx, second, "menu", "write"))

	// role loses its permission
	store.addRole(roleRestaurant)
	svc.InvalidateAll()

	assert.False(t, svc.Can(ctx, first, "menu", "write"))
	assert.False(t, svc.Can(ctx, second, "menu", "write"))
}

func TestResolveFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleSuperAdmin, permRolesManage)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleSuperAdmin.ID, IsActive: true})
	store.setErr(errBackendDown)

	svc := newTestService(t, store, &clock{now: testNow})

	_, err := svc.Resolve(ctx, principal)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, errBackendDown)

	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))

	_, err = svc.IsAdmin(ctx, principal)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	has, err := svc.HasAnyPermission(ctx, principal, []PermissionKey{PermRolesManage})
	require.Error(t, err)
	assert.False(t, has)

	// recovery after the store comes back
	store.setErr(nil)
	assert.True(t, svc.Can(ctx, principal, "roles", "manage"))
}

func TestAdminChecksUseLevelNotName(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name       string
		role       models.Role
		admin      bool
		superAdmin bool
	}{
		{
			name:  "role named admin below the admin level",
			role:  models.Role{ID: 20, Name: "admin", HierarchyLevel: 10, IsActive: true},
			admin: false,
		},
		{
			name:  "renamed role at admin level",
			role:  models.Role{ID: 21, Name: "platform_staff", HierarchyLevel: 60, IsActive: true},
			admin: true,
		},
		{
			name:       "renamed role at super admin level",
			role:       models.Role{ID: 22, Name: "root", HierarchyLevel: LevelSuperAdmin, IsActive: true},
			admin:      true,
			superAdmin: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.addRole(tc.role)

			principal := uuid.New()
			store.assign(principal, models.UserRole{RoleID: tc.role.ID, IsActive: true})

			svc := newTestService(t, store, &clock{now: testNow})

			admin, err := svc.IsAdmin(ctx, principal)
			require.NoError(t, err)
			assert.Equal(t, tc.admin, admin)

			superAdmin, err := svc.IsSuperAdmin(ctx, principal)
			require.NoError(t, err)
			assert.Equal(t, tc.superAdmin, superAdmin)
		})
	}
}

func TestCachedSetExpiresWithAssignment(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleAdmin, permRolesManage)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleAdmin.ID, IsActive: true, ExpiresAt: timePtr(testNow.Add(time.Minute))})

	c := &clock{now: testNow}
	svc := newTestService(t, store, c)

	require.True(t, svc.Can(ctx, principal, "roles", "manage"))
	require.True(t, svc.Can(ctx, principal, "roles", "manage"))
	assert.Equal(t, 1, store.fetchCount())

	c.Set(testNow.Add(time.Minute))

	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))
	assert.Equal(t, 2, store.fetchCount())
}

func TestRefreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuRead)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})
	require.False(t, svc.Can(ctx, principal, "menu", "write"))

	store.addRole(roleRestaurant, permMenuRead, permMenuWrite)
	assert.False(t, svc.Can(ctx, principal, "menu", "write"))

	rp, err := svc.Refresh(ctx, principal)
	require.NoError(t, err)
	assert.True(t, rp.Has(PermMenuWrite))

	// the refreshed set replaced the cached one
	assert.True(t, svc.Can(ctx, principal, "menu", "write"))
}

func TestInvalidateDuringResolutionDoesNotCacheStaleSet(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleAdmin, permRolesManage)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleAdmin.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	entered, release := store.block()

	type result struct {
		rp  *ResolvedPermissions
		err error
	}

	done := make(chan result, 1)

	go func() {
		rp, err := svc.Resolve(ctx, principal)
		done <- result{rp, err}
	}()

	<-entered
	store.unblock()
	// an invalidation lands while the read is in flight
	svc.Invalidate(principal)
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.rp.Has(PermRolesManage))
	assert.Equal(t, 1, store.fetchCount())

	store.setActive(principal, roleAdmin.ID, false)

	// the in-flight result must not have been cached
	assert.False(t, svc.Can(ctx, principal, "roles", "manage"))
	assert.Equal(t, 2, store.fetchCount())
}

func TestMissingRoleIsLoadedOrIgnored(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.skipPreload = true
	store.addRole(roleRestaurant, permMenuWrite)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})
	store.assign(principal, models.UserRole{RoleID: 404, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	rp, err := svc.Resolve(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "restaurant", rp.RoleName())
	assert.Equal(t, []string{"menu.write"}, rp.Names())
}

func TestResolveHonoursCallerContext(t *testing.T) {
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuRead)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	entered, _ := store.block()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		_, err := svc.Resolve(ctx, principal)
		done <- err
	}()

	<-entered
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)

	// nothing was cached by the abandoned call
	store.unblock()
	assert.True(t, svc.Can(context.Background(), principal, "menu", "read"))
	assert.Equal(t, 1, store.fetchCount())
}

func TestHasAllAndAnyPermissions(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuRead, permMenuWrite)

	principal := uuid.New()
	store.assign(principal, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	all, err := svc.HasAllPermissions(ctx, principal, []PermissionKey{PermMenuRead, PermMenuWrite})
	require.NoError(t, err)
	assert.True(t, all)

	all, err = svc.HasAllPermissions(ctx, principal, []PermissionKey{PermMenuRead, PermRolesManage})
	require.NoError(t, err)
	assert.False(t, all)

	all, err = svc.HasAllPermissions(ctx, principal, nil)
	require.NoError(t, err)
	assert.False(t, all)

	anyOf, err := svc.HasAnyPermission(ctx, principal, []PermissionKey{PermRolesManage, PermMenuWrite})
	require.NoError(t, err)
	assert.True(t, anyOf)

	anyOf, err = svc.HasAnyPermission(ctx, principal, []PermissionKey{PermRolesManage})
	require.NoError(t, err)
	assert.False(t, anyOf)
}
