// Package logout ends sessions.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

// Path is the logout endpoint.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	deps  *handler.Deps
	login string
}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.login = route.DefaultLoginPath

	if deps.Routes != nil {
		s.login = deps.Routes.Paths().Login
	}

	// logout route (outside auth middleware protection)
	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout destroys the session and clears its cookie. OIDC sessions continue
// at the provider's end-session endpoint when it advertises one.
func (s *Service) Logout(c *fiber.Ctx) error {
	data := authmw.SessionFromContext(c)

	if sessionID := s.deps.Sessions.CookieValue(c); sessionID != "" {
		if err := s.deps.Sessions.Destroy(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	s.deps.Sessions.ClearCookie(c)

	if data != nil {
		log.Info().Str("principal_id", data.PrincipalID.String()).Msg("principal signed out")

		if data.IDToken != "" && s.deps.OIDC != nil {
			if target := s.deps.OIDC.LogoutURL(data.IDToken, s.postLogoutURL()); target != "" {
				return c.Redirect(target, fiber.StatusFound)
			}
		}
	}

	return c.Redirect(s.login, fiber.StatusFound)
}

func (s *Service) postLogoutURL() string {
	if u := s.deps.Cfg.Auth.OIDC.PostLogoutRedirectURL; u != "" {
		return u
	}

	return s.deps.Cfg.Webserver.URL + s.login
}
