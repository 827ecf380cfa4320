package login

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
)

const (
	// SignupPath is the path of the sign-up endpoint.
	SignupPath = handler.RootPath + "signup"

	limiterKeyPrefix = "login_limit:"
)

// Form is the sign-in request.
type Form struct {
	Email    string `json:"email"    form:"email"    validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required,max=1024"`
	// Redirect is the local page to return to after sign-in.
	Redirect string `json:"redirect" form:"redirect"`
}

// SignupForm is the sign-up request.
type SignupForm struct {
	Email       string `json:"email"       form:"email"       validate:"required,email,max=255"`
	Password    string `json:"password"    form:"password"    validate:"required,min=8,max=1024"`
	DisplayName string `json:"displayName" form:"displayName" validate:"max=200"`
}

// Service is the login handler service.
type Service struct {
	deps  *handler.Deps
	paths route.Paths
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Local == nil || deps.Validator == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.paths = route.DefaultPaths()

	if deps.Routes != nil {
		s.paths = deps.Routes.Paths()
	}

	limit := s.limiter()

	app.Get(s.paths.Login, s.Get)
	app.Post(s.paths.Login, limit, s.Post)
	app.Post(s.paths.AdminLogin, limit, s.PostAdmin)
	app.Post(SignupPath, limit, s.Signup)

	return nil
}

// limiter bounds sign-in attempts per client IP. The counters live next to
// the sessions so every instance shares them.
func (s *Service) limiter() fiber.Handler {
	perMinute := s.deps.Cfg.Webserver.LoginRateLimit
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return limiterKeyPrefix + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return handler.Error(c, fiber.StatusTooManyRequests, "too many sign-in attempts, retry later")
		},
		Storage: s.deps.Sessions.Storage(),
	})
}

// Get lists the sign-in methods.
func (s *Service) Get(c *fiber.Ctx) error {
	local := s.deps.Cfg.Auth.LocalDB

	return c.JSON(fiber.Map{
		"local":  local.Enabled,
		"signup": local.Enabled && local.AllowSignup,
		"oidc":   s.deps.OIDC != nil,
	})
}

// Post signs a principal in and redirects to the requested page or home.
func (s *Service) Post(c *fiber.Ctx) error {
	return s.signIn(c, false)
}

// PostAdmin signs an admin in. Principals below admin level get no session.
func (s *Service) PostAdmin(c *fiber.Ctx) error {
	return s.signIn(c, true)
}

func (s *Service) signIn(c *fiber.Ctx, admin bool) error {
	if !s.deps.Cfg.Auth.LocalDB.Enabled {
		return handler.Error(c, fiber.StatusNotFound, ErrLocalAuthDisabled.Error())
	}

	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	if err := s.deps.Validator.Struct(form); err != nil {
		return handler.BadRequest(c, err)
	}

	user, err := s.deps.Local.Authenticate(c.UserContext(), form.Email, form.Password)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		log.Info().Str("ip", c.IP()).Bool("admin", admin).Msg("failed sign-in attempt")
		return handler.Error(c, fiber.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return handler.Error(c, fiber.StatusForbidden, auth.ErrUserAccountDisabled.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to authenticate principal")
		return handler.Error(c, fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	home := s.paths.Home

	if admin {
		isAdmin, errAdmin := s.deps.Auth.IsAdmin(c.UserContext(), user.ID)
		if errAdmin != nil {
			return auth.Deny(c, errAdmin)
		}

		if !isAdmin {
			log.Warn().Str("principal_id", user.ID.String()).Msg("non-admin rejected at admin sign-in")
			return auth.Deny(c, auth.ErrPermissionDenied)
		}

		home = s.paths.AdminHome
	}

	if err = s.startSession(c, user); err != nil {
		log.Error().Err(err).Str("principal_id", user.ID.String()).Msg("failed to write session")
		return handler.Error(c, fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	return c.Redirect(handler.SafeRedirect(form.Redirect, home), fiber.StatusFound)
}

// Signup creates a principal holding the default role and signs it in.
func (s *Service) Signup(c *fiber.Ctx) error {
	local := s.deps.Cfg.Auth.LocalDB
	if !local.Enabled || !local.AllowSignup {
		return handler.Error(c, fiber.StatusNotFound, ErrSignupDisabled.Error())
	}

	form := new(SignupForm)
	if err := c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	if err := s.deps.Validator.Struct(form); err != nil {
		return handler.BadRequest(c, err)
	}

	user, err := s.deps.Local.SignUp(c.UserContext(), form.Email, form.Password, form.DisplayName)

	switch {
	case errors.Is(err, auth.ErrEmailExists):
		return handler.Error(c, fiber.StatusConflict, auth.ErrEmailExists.Error())
	case err != nil:
		log.Error().Err(err).Msg("failed to sign up principal")
		return handler.Error(c, fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	if err = s.startSession(c, user); err != nil {
		log.Error().Err(err).Str("principal_id", user.ID.String()).Msg("failed to write session")
		return handler.Error(c, fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"redirect": s.paths.Home,
	})
}

func (s *Service) startSession(c *fiber.Ctx, user *models.User) error {
	sessionID, _, err := s.deps.Sessions.Create(user.ID, user.Email, "")
	if err != nil {
		return err
	}

	s.deps.Sessions.SetCookie(c, sessionID)

	log.Info().Str("principal_id", user.ID.String()).Msg("principal signed in")

	return nil
}
