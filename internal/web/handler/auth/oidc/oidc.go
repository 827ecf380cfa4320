package oidc

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"
)

// Service is the OIDC handler service.
type Service struct {
	deps  *handler.Deps
	paths route.Paths
}

// Init registers the OIDC routes when a provider is configured.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	if deps.OIDC == nil || deps.Flows == nil {
		log.Info().Msg("OIDC authentication is disabled")
		return nil
	}

	s.deps = deps
	s.paths = route.DefaultPaths()

	if deps.Routes != nil {
		s.paths = deps.Routes.Paths()
	}

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	returnTo := handler.SafeRedirect(c.Query(s.paths.ReturnParam), s.paths.Home)

	if err = s.deps.Flows.Begin(c, state, returnTo); err != nil {
		log.Error().Err(err).Msg("failed to store sign-in state")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.Redirect(s.deps.OIDC.AuthURL(state), fiber.StatusFound)
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		log.Warn().Str("error", reason).Str("description", c.Query("error_description")).
			Msg("identity provider refused sign-in")

		return c.Redirect(s.paths.Login, fiber.StatusFound)
	}

	returnTo, err := s.deps.Flows.Finish(c, c.Query("state"))
	if err != nil {
		log.Warn().Err(err).Msg("rejected OIDC callback")
		return handler.Error(c, fiber.StatusBadRequest, "invalid sign-in state")
	}

	code := c.Query("code")
	if code == "" {
		return handler.Error(c, fiber.StatusBadRequest, "invalid callback parameters")
	}

	user, idToken, err := s.deps.OIDC.HandleCallback(c.UserContext(), code)

	switch {
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return handler.Error(c, fiber.StatusForbidden, auth.ErrUserAccountDisabled.Error())
	case err != nil:
		log.Error().Err(err).Msg("OIDC authentication failed")
		return handler.Error(c, fiber.StatusUnauthorized, "authentication failed")
	}

	sessionID, _, err := s.deps.Sessions.Create(user.ID, user.Email, idToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	s.deps.Sessions.SetCookie(c, sessionID)

	log.Info().Str("principal_id", user.ID.String()).Msg("principal signed in via OIDC")

	return c.Redirect(handler.SafeRedirect(returnTo, s.paths.Home), fiber.StatusFound)
}
