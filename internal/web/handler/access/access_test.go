package access

import (
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/handlertest"
)

func TestAccess(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	owner := env.Principal(t, "owner@bistro.test", "", handlertest.RoleRestaurant)
	admin := env.Principal(t, "root@qrmenu.test", "", handlertest.RoleSuperAdmin)

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, env.SignIn(t, owner)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary Summary
	handlertest.Decode(t, resp, &summary)

	assert.Equal(t, owner, summary.PrincipalID)
	assert.Equal(t, handlertest.RoleRestaurant, summary.Role)
	assert.False(t, summary.IsAdmin)
	assert.Equal(t, []string{handlertest.RoleRestaurant}, summary.Roles)
	assert.Contains(t, summary.Permissions, "orders.write")
	assert.NotContains(t, summary.Permissions, "roles.manage")

	resp = handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, env.SignIn(t, admin)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	handlertest.Decode(t, resp, &summary)
	assert.True(t, summary.IsAdmin)
	assert.True(t, summary.IsSuperAdmin)
	assert.Equal(t, 100, summary.Level)
}

func TestAccessRequiresSession(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoute(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	owner := env.SignIn(t, env.Principal(t, "owner@bistro.test", "", handlertest.RoleRestaurant))
	admin := env.SignIn(t, env.Principal(t, "ops@qrmenu.test", "", handlertest.RoleAdmin))

	testCases := []struct {
		name         string
		path         string
		cookie       bool
		admin        bool
		wantStatus   int
		wantState    string
		wantLocation string
	}{
		{name: "restaurant home", path: "/dashboard", wantStatus: fiber.StatusOK, wantState: "allowed"},
		{
			name:         "restaurant at admin page",
			path:         "/admin/users",
			wantStatus:   fiber.StatusOK,
			wantState:    "redirect_login",
			wantLocation: "/admin/login?redirect=%2Fadmin%2Fusers",
		},
		{
			name:         "signed in at login page",
			path:         "/login",
			wantStatus:   fiber.StatusOK,
			wantState:    "redirect_home",
			wantLocation: "/dashboard",
		},
		{
			name:         "admin outside admin area",
			path:         "/dashboard?tab=1",
			admin:        true,
			wantStatus:   fiber.StatusOK,
			wantState:    "redirect_admin_home",
			wantLocation: "/admin/dashboard",
		},
		{name: "admin page", path: "/admin/roles", admin: true, wantStatus: fiber.StatusOK, wantState: "allowed"},
		{name: "not a local path", path: "https://evil.test/", wantStatus: fiber.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cookie := owner
			if tc.admin {
				cookie = admin
			}

			resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet,
				RoutePath+"?path="+url.QueryEscape(tc.path), nil, cookie))
			require.Equal(t, tc.wantStatus, resp.StatusCode)

			if tc.wantStatus != fiber.StatusOK {
				return
			}

			var decision RouteDecision
			handlertest.Decode(t, resp, &decision)

			assert.Equal(t, tc.path, decision.Path)
			assert.Equal(t, tc.wantState, decision.State)
			assert.Equal(t, tc.wantLocation, decision.Location)
		})
	}
}

func TestDenied(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	testCases := []struct {
		query     string
		wantRetry string
	}{
		{query: "?redirect=%2Fdashboard%2Fmenu", wantRetry: "/dashboard/menu"},
		{query: "?redirect=%2F%2Fevil.test", wantRetry: ""},
		{query: "", wantRetry: ""},
	}

	for _, tc := range testCases {
		resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, "/access-denied"+tc.query, nil, nil))
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body map[string]string
		handlertest.Decode(t, resp, &body)

		assert.Equal(t, "not permitted", body["error"])
		assert.Equal(t, tc.wantRetry, body["retry"], tc.query)
	}
}
