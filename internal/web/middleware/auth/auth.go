package auth

import (
	"errors"
	"path"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	fiberlogger "github.com/QRMenu-Admin/QRMenu-Admin/internal/logger/adapter/fiber"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/session"
)

// LocalsSession holds the *session.Data of the signed-in principal.
const LocalsSession = "session"

// Identify reads the session cookie and marks the request as signed in when
// the session is live. Dead sessions lose their cookie. Backend failures
// leave the request anonymous; the gate reports them on protected routes.
func Identify(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := sessions.CookieValue(c)
		if sessionID == "" {
			return c.Next()
		}

		data, err := sessions.Read(sessionID)

		switch {
		case err == nil:
			auth.SetPrincipal(c, data.PrincipalID, sessionID)
			c.Locals(LocalsSession, data)
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionExpired):
			sessions.ClearCookie(c)
		default:
			log.Error().Err(err).Str("path", c.Path()).Msg("failed to read session")
			// keep the id so the gate sees the backend failure
			c.Locals(auth.LocalsSessionID, sessionID)
		}

		return c.Next()
	}
}

// SessionFromContext returns the session data stored by Identify.
func SessionFromContext(c *fiber.Ctx) *session.Data {
	data, _ := c.Locals(LocalsSession).(*session.Data)
	return data
}

// Navigation decides page requests with the route controller. Bypassed
// paths and paths outside the table's pages pass through untouched.
func Navigation(controller *route.Controller, table *route.Table) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, target := requestTarget(c)

		if table.Bypassed(p) {
			return c.Next()
		}

		principalID, _ := auth.PrincipalFromContext(c)

		decision := controller.Resolve(c.UserContext(), route.Request{
			SessionID:   auth.SessionFromContext(c),
			PrincipalID: principalID,
			Meta:        table.Lookup(p),
			URL:         target,
		})

		c.Locals(fiberlogger.LocalsRouteDecision, decision.State.String())

		switch {
		case decision.State == route.Allowed:
			return c.Next()
		case decision.Redirects():
			if decision.Err != nil {
				log.Warn().Err(decision.Err).Str("path", c.Path()).Str("state", decision.State.String()).
					Msg("navigation denied")
			}

			return c.Redirect(decision.Location, fiber.StatusFound)
		default:
			// the client went away before the navigation settled
			return fiber.NewError(fiber.StatusServiceUnavailable, auth.MsgNotPermitted)
		}
	}
}

// requestTarget returns the cleaned request path and that path with the
// query, so that the table and the decision see the same route.
func requestTarget(c *fiber.Ctx) (string, string) {
	p := path.Clean("/" + c.Path())

	if query := c.Request().URI().QueryString(); len(query) > 0 {
		return p, p + "?" + string(query)
	}

	return p, p
}

// RequireSession rejects API requests without a live session.
func RequireSession(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := auth.SessionFromContext(c)
		if sessionID == "" {
			return auth.Deny(c, auth.ErrNoPrincipal)
		}

		if err := gate.RequireLiveSession(c.UserContext(), sessionID); err != nil {
			return auth.Deny(c, err)
		}

		if _, ok := auth.PrincipalFromContext(c); !ok {
			return auth.Deny(c, auth.ErrNoPrincipal)
		}

		return c.Next()
	}
}
