package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

func TestEffectiveRole(t *testing.T) {
	ops := models.Role{ID: 10, Name: "ops", HierarchyLevel: LevelAdmin, IsActive: true}
	inactive := models.Role{ID: 11, Name: "retired", HierarchyLevel: 500, IsActive: false}

	testCases := []struct {
		name         string
		assignments  []models.UserRole
		expectedRole string
	}{
		{
			name:         "no assignments",
			expectedRole: "",
		},
		{
			name: "highest level wins",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleRestaurant.ID, Role: roleRestaurant, IsActive: true, AssignedAt: testNow.Add(-time.Hour)},
				{ID: 2, RoleID: roleSuperAdmin.ID, Role: roleSuperAdmin, IsActive: true, AssignedAt: testNow},
				{ID: 3, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: true, AssignedAt: testNow.Add(-2 * time.Hour)},
			},
			expectedRole: "super_admin",
		},
		{
			name: "tie goes to the earliest assignment",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: true, AssignedAt: testNow.Add(-time.Minute)},
				{ID: 2, RoleID: ops.ID, Role: ops, IsActive: true, AssignedAt: testNow.Add(-time.Hour)},
			},
			expectedRole: "ops",
		},
		{
			name: "tie at the same instant goes to the lowest assignment id",
			assignments: []models.UserRole{
				{ID: 7, RoleID: ops.ID, Role: ops, IsActive: true, AssignedAt: testNow},
				{ID: 5, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: true, AssignedAt: testNow},
			},
			expectedRole: "admin",
		},
		{
			name: "expired assignment is ignored",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleSuperAdmin.ID, Role: roleSuperAdmin, IsActive: true, ExpiresAt: timePtr(testNow.Add(-time.Second))},
				{ID: 2, RoleID: roleRestaurant.ID, Role: roleRestaurant, IsActive: true},
			},
			expectedRole: "restaurant",
		},
		{
			name: "expiry equal to now is expired",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleSuperAdmin.ID, Role: roleSuperAdmin, IsActive: true, ExpiresAt: timePtr(testNow)},
			},
			expectedRole: "",
		},
		{
			name: "future expiry still grants",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: true, ExpiresAt: timePtr(testNow.Add(time.Nanosecond))},
			},
			expectedRole: "admin",
		},
		{
			name: "revoked assignment is ignored",
			assignments: []models.UserRole{
				{ID: 1, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: false},
			},
			expectedRole: "",
		},
		{
			name: "inactive role grants nothing",
			assignments: []models.UserRole{
				{ID: 1, RoleID: inactive.ID, Role: inactive, IsActive: true},
				{ID: 2, RoleID: roleRestaurant.ID, Role: roleRestaurant, IsActive: true},
			},
			expectedRole: "restaurant",
		},
		{
			name: "assignment without a loaded role grants nothing",
			assignments: []models.UserRole{
				{ID: 1, RoleID: 99, IsActive: true},
			},
			expectedRole: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			role := EffectiveRole(tc.assignments, testNow)

			if tc.expectedRole == "" {
				assert.Nil(t, role)
				assert.Equal(t, LevelNone, LevelOf(role))

				return
			}

			require.NotNil(t, role)
			assert.Equal(t, tc.expectedRole, role.Name)
		})
	}
}

func TestEffectiveRoleIsStable(t *testing.T) {
	ops := models.Role{ID: 10, Name: "ops", HierarchyLevel: LevelAdmin, IsActive: true}

	assignments := []models.UserRole{
		{ID: 1, RoleID: roleAdmin.ID, Role: roleAdmin, IsActive: true, AssignedAt: testNow.Add(-time.Minute)},
		{ID: 2, RoleID: ops.ID, Role: ops, IsActive: true, AssignedAt: testNow.Add(-time.Hour)},
	}

	for i := 0; i < 50; i++ {
		role := EffectiveRole(assignments, testNow)
		require.NotNil(t, role)
		assert.Equal(t, "ops", role.Name)

		// reversed input order must not matter
		assignments[0], assignments[1] = assignments[1], assignments[0]
	}
}

func TestLevelThresholds(t *testing.T) {
	assert.False(t, IsAdminLevel(LevelNone))
	assert.False(t, IsAdminLevel(LevelRestaurant))
	assert.False(t, IsAdminLevel(LevelAdmin-1))
	assert.True(t, IsAdminLevel(LevelAdmin))
	assert.True(t, IsAdminLevel(LevelSuperAdmin))
	assert.True(t, IsAdminLevel(LevelSuperAdmin+1))

	assert.False(t, IsSuperAdminLevel(LevelAdmin))
	assert.True(t, IsSuperAdminLevel(LevelSuperAdmin))
	assert.False(t, IsSuperAdminLevel(LevelSuperAdmin+1))
}
