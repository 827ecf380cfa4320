package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/session"
)

// Deps are the services handlers are built on. The daemon creates them once.
type Deps struct {
	Cfg         *config.Config
	DB          *gorm.DB
	Auth        *auth.Service
	Invalidator auth.Invalidator
	Gate        *auth.Gate
	Local       *auth.LocalProvider
	// OIDC is nil when OIDC sign-in is disabled or its provider is unreachable.
	OIDC      *auth.OIDCProvider
	Sessions  *session.Manager
	Flows     *session.Flows
	Routes    *route.Controller
	Table     *route.Table
	Validator *validator.Validate
}

// Valid reports whether the deps every handler needs are set.
func (d *Deps) Valid() bool {
	return d != nil && d.Cfg != nil && d.DB != nil && d.Auth != nil && d.Sessions != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
