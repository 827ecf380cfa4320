package dashboard

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/handlertest"
)

func TestHome(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	owner := env.Principal(t, "owner@bistro.test", "", handlertest.RoleRestaurant)

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, "/dashboard", nil, env.SignIn(t, owner)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page Page
	handlertest.Decode(t, resp, &page)

	assert.Equal(t, owner.String(), page.PrincipalID)
	assert.Equal(t, handlertest.RoleRestaurant, page.Role)
	assert.Contains(t, page.Permissions, "menu.write")
	require.Len(t, page.Navigation.Menu, 1)
	assert.Len(t, page.Navigation.Menu[0].Items, 3)
	assert.Equal(t, "dashboard", page.Navigation.ActiveSection)
	assert.Nil(t, page.Stats)
}

func TestAdminHome(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	admin := env.Principal(t, "ops@qrmenu.test", "", handlertest.RoleAdmin)
	owner := env.Principal(t, "owner@bistro.test", "", handlertest.RoleRestaurant)

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, "/admin/dashboard", nil, env.SignIn(t, admin)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page Page
	handlertest.Decode(t, resp, &page)

	assert.Equal(t, handlertest.RoleAdmin, page.Role)
	assert.Equal(t, 50, page.Level)
	require.Len(t, page.Navigation.Menu, 1, "only sections with granted items")
	assert.Equal(t, "Access", page.Navigation.Menu[0].Title)
	assert.Equal(t, int64(2), page.Stats["principals"])
	assert.Equal(t, int64(3), page.Stats["roles"])

	resp = handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, "/admin/dashboard", nil, env.SignIn(t, owner)))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAnonymous(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, "/dashboard", nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
