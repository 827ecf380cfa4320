// Package role provides the admin API for roles and the permissions they grant.
package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	rolectl "github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/role"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// Path is the base path for role management.
	Path = handler.RootPath + "admin/api/roles"
	// PermissionsPath lists the permission catalogue.
	PermissionsPath = handler.RootPath + "admin/api/permissions"
)

// View is a role as returned by the API.
type View struct {
	ID             uint     `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	HierarchyLevel int      `json:"hierarchyLevel"`
	IsSystemRole   bool     `json:"isSystemRole"`
	IsActive       bool     `json:"isActive"`
	Permissions    []string `json:"permissions,omitempty"`
}

// PermissionView is a catalogue entry.
type PermissionView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// PermissionsForm replaces the permissions of a role. Entries are
// permission names or "resource.action" keys.
type PermissionsForm struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=150"`
}

func newView(r *models.Role) View {
	return View{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		HierarchyLevel: r.HierarchyLevel,
		IsSystemRole:   r.IsSystemRole,
		IsActive:       r.IsActive,
	}
}

func newPermissionView(p *models.Permission) PermissionView {
	return PermissionView{
		ID:          p.ID,
		Name:        p.Name,
		Key:         auth.Key(p.Resource, p.Action).String(),
		Description: p.Description,
	}
}

// Service provides CRUD operations for roles.
type Service struct {
	deps  *handler.Deps
	roles *rolectl.Manager
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Gate == nil || deps.Invalidator == nil || deps.Validator == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.roles = rolectl.New(deps.DB, deps.Invalidator)

	requireSession := authmw.RequireSession(deps.Gate)
	requireRolesManage := auth.RequirePermission(deps.Auth, auth.PermRolesManage)

	app.Get(PermissionsPath, requireSession, requireRolesManage, s.Permissions)

	app.Route(Path, func(router fiber.Router) {
		router.Use(requireSession, requireRolesManage)
		router.Get(handler.RootPath, s.List)
		router.Post(handler.RootPath, s.Create)
		router.Get("/:id", s.Get)
		router.Put("/:id", s.Update)
		router.Delete("/:id", s.Delete)
		router.Put("/:id/permissions", s.SetPermissions)
	})

	return nil
}

// Permissions lists the permission catalogue.
func (s *Service) Permissions(c *fiber.Ctx) error {
	catalogue, err := s.deps.Auth.Catalogue(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]PermissionView, 0, len(catalogue))
	for i := range catalogue {
		out = append(out, newPermissionView(&catalogue[i]))
	}

	return c.JSON(out)
}

// List lists every role, highest rank first.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.roles.List(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]View, 0, len(roles))
	for i := range roles {
		out = append(out, newView(&roles[i]))
	}

	return c.JSON(out)
}

// Get returns one role with its permission keys.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	detail, err := s.roles.Get(c.UserContext(), uint(id))
	if err != nil {
		return s.fail(c, err)
	}

	view := newView(&detail.Role)
	view.Permissions = make([]string, 0, len(detail.Permissions))

	for _, p := range detail.Permissions {
		view.Permissions = append(view.Permissions, auth.Key(p.Resource, p.Action).String())
	}

	return c.JSON(view)
}

// Create creates a custom role.
func (s *Service) Create(c *fiber.Ctx) error {
	in, ok := s.input(c)
	if !ok {
		return nil
	}

	actor, _ := auth.PrincipalFromContext(c)

	r, err := s.roles.Create(c.UserContext(), actor, *in)
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newView(r))
}

// Update changes a role.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	in, ok := s.input(c)
	if !ok {
		return nil
	}

	actor, _ := auth.PrincipalFromContext(c)

	r, err := s.roles.Update(c.UserContext(), actor, uint(id), *in)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(newView(r))
}

// Delete removes a custom role and its assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	actor, _ := auth.PrincipalFromContext(c)

	if err = s.roles.Delete(c.UserContext(), actor, uint(id)); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetPermissions replaces the permissions a role grants.
func (s *Service) SetPermissions(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return handler.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	form := new(PermissionsForm)
	if err = c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	if err = s.deps.Validator.Struct(form); err != nil {
		return handler.BadRequest(c, err)
	}

	actor, _ := auth.PrincipalFromContext(c)

	if err = s.roles.SetPermissions(c.UserContext(), actor, uint(id), form.Permissions); err != nil {
		return s.fail(c, err)
	}

	return s.Get(c)
}

// input parses and validates a role body. It writes the error response
// itself and reports false when the body is unusable.
func (s *Service) input(c *fiber.Ctx) (*rolectl.Input, bool) {
	in := new(rolectl.Input)

	if err := c.BodyParser(in); err != nil {
		_ = handler.BadRequest(c, err)
		return nil, false
	}

	if err := s.deps.Validator.Struct(in); err != nil {
		_ = handler.BadRequest(c, err)
		return nil, false
	}

	return in, true
}

func (s *Service) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rolectl.ErrRoleNotFound):
		return handler.Error(c, fiber.StatusNotFound, rolectl.ErrRoleNotFound.Error())
	case errors.Is(err, rolectl.ErrRoleExists):
		return handler.Error(c, fiber.StatusConflict, rolectl.ErrRoleExists.Error())
	case errors.Is(err, rolectl.ErrSystemRole):
		return handler.Error(c, fiber.StatusConflict, rolectl.ErrSystemRole.Error())
	case errors.Is(err, rolectl.ErrUnknownPermission):
		return handler.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrStoreUnavailable):
		return auth.Deny(c, err)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("role management failed")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
