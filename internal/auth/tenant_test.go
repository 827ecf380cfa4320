package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

func TestCheckOwnedOrAdmin(t *testing.T) {
	principal, other := uuid.New(), uuid.New()

	require.NoError(t, CheckOwnedOrAdmin(principal, principal, false))
	require.ErrorIs(t, CheckOwnedOrAdmin(principal, other, false), ErrTenantViolation)
	require.ErrorIs(t, CheckOwnedOrAdmin(uuid.Nil, uuid.Nil, false), ErrTenantViolation)

	// admins cross tenants whatever the owner
	for _, owner := range []uuid.UUID{principal, other, uuid.Nil, uuid.New()} {
		require.NoError(t, CheckOwnedOrAdmin(principal, owner, true))
	}
}

func TestAssertOwnedOrAdmin(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleRestaurant, permMenuWrite)
	store.addRole(roleAdmin, permAdminView)

	owner, intruder, admin := uuid.New(), uuid.New(), uuid.New()
	store.assign(owner, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})
	store.assign(intruder, models.UserRole{RoleID: roleRestaurant.ID, IsActive: true})
	store.assign(admin, models.UserRole{RoleID: roleAdmin.ID, IsActive: true})

	svc := newTestService(t, store, &clock{now: testNow})

	require.NoError(t, svc.AssertOwnedOrAdmin(ctx, owner, owner))
	require.ErrorIs(t, svc.AssertOwnedOrAdmin(ctx, intruder, owner), ErrTenantViolation)
	require.NoError(t, svc.AssertOwnedOrAdmin(ctx, admin, owner))
	require.NoError(t, svc.AssertOwnedOrAdmin(ctx, admin, uuid.New()))
	require.ErrorIs(t, svc.AssertOwnedOrAdmin(ctx, uuid.Nil, owner), ErrTenantViolation)

	// the error message never depends on the target
	assert.Equal(t, MsgNotPermitted, svc.AssertOwnedOrAdmin(ctx, intruder, uuid.New()).Error())
}

func TestAssertOwnedOrAdminFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addRole(roleAdmin, permAdminView)

	admin, owner := uuid.New(), uuid.New()
	store.assign(admin, models.UserRole{RoleID: roleAdmin.ID, IsActive: true})
	store.setErr(errBackendDown)

	svc := newTestService(t, store, &clock{now: testNow})

	err := svc.AssertOwnedOrAdmin(ctx, admin, owner)
	require.ErrorIs(t, err, ErrTenantViolation)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	// owning needs no resolution
	require.NoError(t, svc.AssertOwnedOrAdmin(ctx, owner, owner))
}
