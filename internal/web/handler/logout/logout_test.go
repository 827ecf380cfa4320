package logout

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/handlertest"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/session"
)

func TestLogout(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	principal := env.Principal(t, "owner@bistro.test", "", handlertest.RoleRestaurant)

	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		t.Run(method, func(t *testing.T) {
			cookie := env.SignIn(t, principal)

			resp := handlertest.Do(t, app, handlertest.Request(method, Path, nil, cookie))

			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
			assert.Nil(t, handlertest.SessionCookie(resp), "cookie is cleared")

			_, err := env.Deps.Sessions.Read(cookie.Value)
			require.ErrorIs(t, err, session.ErrSessionNotFound)
		})
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, nil))

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}
