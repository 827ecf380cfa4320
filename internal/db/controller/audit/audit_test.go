package audit

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.RoleAuditEvent{}))

	return db
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	actor := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	events := []Event{
		{Actor: actor, Subject: alice, RoleID: 3, Action: models.AuditAssignmentGranted},
		{Actor: actor, Subject: bob, RoleID: 3, Action: models.AuditAssignmentGranted},
		{Subject: alice, RoleID: 3, Action: models.AuditAssignmentExpired, Details: map[string]any{"expiresAt": "2026-03-14T12:00:00Z"}},
		{Actor: actor, RoleID: 7, Action: models.AuditRoleCreated, Details: map[string]any{"name": "support"}},
	}

	for _, e := range events {
		require.NoError(t, Record(ctx, db, e))
	}

	testCases := []struct {
		name    string
		filter  Filter
		actions []models.AuditAction
	}{
		{
			name:   "all newest first",
			filter: Filter{},
			actions: []models.AuditAction{
				models.AuditRoleCreated, models.AuditAssignmentExpired,
				models.AuditAssignmentGranted, models.AuditAssignmentGranted,
			},
		},
		{
			name:    "by subject",
			filter:  Filter{Subject: alice},
			actions: []models.AuditAction{models.AuditAssignmentExpired, models.AuditAssignmentGranted},
		},
		{name: "by role", filter: Filter{RoleID: 7}, actions: []models.AuditAction{models.AuditRoleCreated}},
		{name: "limited", filter: Filter{Limit: 1}, actions: []models.AuditAction{models.AuditRoleCreated}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := List(ctx, db, tc.filter)
			require.NoError(t, err)

			actions := make([]models.AuditAction, 0, len(got))
			for _, e := range got {
				actions = append(actions, e.Action)
			}

			assert.Equal(t, tc.actions, actions)
		})
	}

	got, err := List(ctx, db, Filter{Subject: alice})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ActorID, "system events have no actor")
	assert.Equal(t, "2026-03-14T12:00:00Z", got[0].Details["expiresAt"])
	require.NotNil(t, got[1].ActorID)
	assert.Equal(t, actor, *got[1].ActorID)
}

func TestNilDB(t *testing.T) {
	require.ErrorIs(t, Record(context.Background(), nil, Event{}), ErrDBNil)

	_, err := List(context.Background(), nil, Filter{})
	require.ErrorIs(t, err, ErrDBNil)
}
