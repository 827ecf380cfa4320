package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	id := uuid.New()
	rp := Fixed(id, &roleRestaurant, testNow, PermMenuRead, Key(" MENU ", "Write"))

	assert.Equal(t, id, rp.PrincipalID)
	assert.True(t, rp.Has(PermMenuWrite))
	assert.True(t, rp.Has(PermMenuRead))
	assert.False(t, rp.Has(PermRolesManage))
	assert.Equal(t, []string{"menu.read", "menu.write"}, rp.Names())
	assert.Equal(t, "restaurant", rp.RoleName())
	assert.False(t, rp.IsAdmin())
	assert.True(t, rp.validAt(testNow.AddDate(10, 0, 0), 0))

	none := Fixed(id, nil, testNow)
	assert.Zero(t, none.Len())
	assert.Equal(t, LevelNone, none.Level())
	assert.Empty(t, none.Roles)
}

func TestNilResolvedPermissions(t *testing.T) {
	var rp *ResolvedPermissions

	assert.False(t, rp.Has(PermMenuRead))
	assert.Zero(t, rp.Len())
	assert.Empty(t, rp.Names())
	assert.Empty(t, rp.RoleName())
	assert.False(t, rp.IsAdmin())
	assert.False(t, rp.IsSuperAdmin())
}

func TestValidAtMaxAge(t *testing.T) {
	rp := Fixed(uuid.New(), &roleRestaurant, testNow, PermMenuRead)

	testCases := []struct {
		name   string
		now    time.Time
		maxAge time.Duration
		want   bool
	}{
		{name: "no max age", now: testNow.Add(24 * time.Hour), maxAge: 0, want: true},
		{name: "within max age", now: testNow.Add(59 * time.Second), maxAge: time.Minute, want: true},
		{name: "at max age", now: testNow.Add(time.Minute), maxAge: time.Minute, want: false},
		{name: "after max age", now: testNow.Add(time.Hour), maxAge: time.Minute, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rp.validAt(tc.now, tc.maxAge))
		})
	}
}
